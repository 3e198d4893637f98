package mcp

import "github.com/mark3labs/mcp-go/mcp"

func analyzeDirectoryTool() mcp.Tool {
	return mcp.NewTool("analyze_directory",
		mcp.WithDescription("Analyze every Ruby file under a directory. Returns file and class counts, and the output paths when an output file is given."),
		mcp.WithString("root", mcp.Required(), mcp.Description("Directory to analyze")),
		mcp.WithString("output", mcp.Description("Nodes JSON path; the classes dictionary is written beside it. Nothing is written when omitted.")),
	)
}

func lookupClassTool() mcp.Tool {
	return mcp.NewTool("lookup_class",
		mcp.WithDescription("Resolve a class reference (e.g. Auth, Api::Auth, ::Auth) to its defining file the same way call receivers are resolved, and list the classes defined there."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("root", mcp.Required(), mcp.Description("Directory to analyze")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Class reference to resolve")),
	)
}

func classVariantsTool() mcp.Tool {
	return mcp.NewTool("class_variants",
		mcp.WithDescription("List every name a class can be referenced by, from fully qualified down to bare, plus the absolute form."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("name", mcp.Required(), mcp.Description("Bare class name")),
		mcp.WithArray("namespaces", mcp.WithStringItems(), mcp.Description("Enclosing namespaces, outermost first")),
	)
}

func listRunsTool() mcp.Tool {
	return mcp.NewTool("list_runs",
		mcp.WithDescription("List stored analysis runs, newest first. Requires the run store to be enabled."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return"), mcp.DefaultNumber(10), mcp.Min(1)),
	)
}

func statsTool() mcp.Tool {
	return mcp.NewTool("stats",
		mcp.WithDescription("Report analysis counters since the server started."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
