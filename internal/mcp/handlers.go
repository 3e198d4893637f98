package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/imyousuf/rubyagent/internal/analyzer"
	"github.com/imyousuf/rubyagent/internal/export"
)

type analyzeSummary struct {
	Root            string `json:"root"`
	FilesCount      int    `json:"files_count"`
	NodesCount      int    `json:"nodes_count"`
	OutputPath      string `json:"output_path,omitempty"`
	ClassesDictPath string `json:"classes_dict_path,omitempty"`
	RunID           string `json:"run_id,omitempty"`
}

type lookupResult struct {
	Name     string                 `json:"name"`
	Resolved bool                   `json:"resolved"`
	Via      string                 `json:"via"`
	FilePath string                 `json:"file_path,omitempty"`
	Classes  []analyzer.ClassRecord `json:"classes"`
}

type runSummary struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	StartedAt time.Time `json:"started_at"`
	Files     int       `json:"files"`
	Classes   int       `json:"classes"`
}

func (s *Server) handleAnalyzeDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output := req.GetString("output", "")

	summary := analyzeSummary{Root: root}
	if output == "" {
		res, err := s.idx.Analyze(ctx, root)
		if err != nil {
			return s.toolError("analyze_directory", err), nil
		}
		summary.FilesCount = res.Variants.Len()
		summary.NodesCount = len(res.Classes)
	} else {
		out, err := s.idx.Run(ctx, root, output)
		if err != nil {
			return s.toolError("analyze_directory", err), nil
		}
		summary.FilesCount = out.Result.Variants.Len()
		summary.NodesCount = len(out.Result.Classes)
		summary.OutputPath = out.Paths.Nodes
		summary.ClassesDictPath = out.Paths.Dictionary
		summary.RunID = out.RunID()
	}
	return jsonResult(summary)
}

func (s *Server) handleLookupClass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.idx.Analyze(ctx, root)
	if err != nil {
		return s.toolError("lookup_class", err), nil
	}

	resolution := res.Registry.Resolve(name)
	out := lookupResult{
		Name:     name,
		Resolved: resolution.Resolved(),
		Via:      resolution.Via.String(),
		FilePath: resolution.Path,
		Classes:  []analyzer.ClassRecord{},
	}
	if resolution.Resolved() {
		for _, c := range res.Classes {
			if c.FilePath == resolution.Path {
				out.Classes = append(out.Classes, c)
			}
		}
	}
	return jsonResult(out)
}

func (s *Server) handleClassVariants(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	namespaces := req.GetStringSlice("namespaces", nil)
	return jsonResult(map[string]any{
		"label":    analyzer.QualifiedName(namespaces, name),
		"variants": analyzer.NameVariants(name, namespaces),
	})
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.idx.Store()
	if st == nil {
		return mcp.NewToolResultError("run store is not enabled"), nil
	}
	limit := req.GetInt("limit", 10)
	if limit < 1 {
		limit = 1
	}
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return s.toolError("list_runs", err), nil
	}
	out := make([]runSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, runSummary{
			ID:        r.ID,
			Root:      r.Root,
			StartedAt: r.StartedAt,
			Files:     len(r.Files),
			Classes:   len(r.Classes),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.idx.Stats())
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.log.Warn("tool call failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := export.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
