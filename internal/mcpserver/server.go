// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the story library to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/storyloom/internal/playback"
	"github.com/starford/storyloom/internal/storyservice"
)

const formatURI = "storyloom://story-format"

// Server wraps the MCP server with story tools.
type Server struct {
	mcp *server.MCPServer
	svc *storyservice.Service
}

// New creates a new MCP server with all story tools registered.
func New(svc *storyservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Storyloom",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_stories",
		mcp.WithDescription("List stories in the library with node, choice and ending counts."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of stories (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of stories to skip")),
	), s.listStories)

	s.mcp.AddTool(mcp.NewTool("read_story",
		mcp.WithDescription("Read the raw JSON document of a story."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the story (e.g. act1/tavern.json)")),
	), s.readStory)

	s.mcp.AddTool(mcp.NewTool("create_story",
		mcp.WithDescription("Create a new story at the specified path. "+
			"Content MUST follow the story format contract. Read it first via "+
			"the get_story_contract tool or the "+formatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new story (must end with .json)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Story JSON following the format contract")),
	), s.createStory)

	s.mcp.AddTool(mcp.NewTool("search_dialogue",
		mcp.WithDescription("Full-text search through node and choice text of every story."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchDialogue)

	s.mcp.AddTool(mcp.NewTool("preview_story",
		mcp.WithDescription("Play a story: start at a node, follow a list of choice indexes, "+
			"and return the node reached with placeholders substituted."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the story")),
		mcp.WithString("start", mcp.Description("Start node id (defaults to the first node)")),
		mcp.WithString("choices", mcp.Description("Comma-separated choice indexes to follow, e.g. \"0,1\". "+
			"A linear node's continue action is index 0.")),
	), s.previewStory)

	s.mcp.AddTool(mcp.NewTool("extract_translations",
		mcp.WithDescription("Build one translation table from several stories. "+
			"Keys are <nodeId> and <nodeId>_choice_<index>."),
		mcp.WithString("paths", mcp.Required(), mcp.Description("Comma-separated story paths")),
	), s.extractTranslations)

	s.mcp.AddTool(mcp.NewTool("stories_by_speaker",
		mcp.WithDescription("Find stories where a character speaks or is referenced by a {placeholder}."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
	), s.storiesBySpeaker)

	s.mcp.AddTool(mcp.NewTool("get_story_contract",
		mcp.WithDescription("Returns the story format contract. "+
			"Call this before creating stories to ensure correct structure."),
	), s.getStoryContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Story Format Contract",
			mcp.WithResourceDescription("Story JSON format that all library stories must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStoryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listStories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListStories(ctx, req.GetInt("limit", 50), req.GetInt("offset", 0), "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if items == nil {
		items = []storyservice.StoryListItem{}
	}
	return jsonResult(map[string]any{"stories": items, "total": total})
}

func (s *Server) readStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetStory(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	out, err := json.MarshalIndent(detail.Story, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.CreateStory(ctx, path, []byte(content)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) searchDialogue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

type previewResult struct {
	View    playback.View     `json:"view"`
	History []string          `json:"history"`
	Actions []playback.Option `json:"actions"`
}

func (s *Server) previewStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps, err := parseChoices(req.GetString("choices", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetStory(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}

	start := req.GetString("start", "")
	if start == "" {
		start = detail.Story.FirstNodeID()
	}
	p, err := playback.Walk(detail.Story, start, steps)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := p.View()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actions := v.Actions()
	if actions == nil {
		actions = []playback.Option{}
	}
	return jsonResult(previewResult{View: v, History: p.History(), Actions: actions})
}

// parseChoices reads "0, 2,1" into choice indexes.
func parseChoices(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid choice index %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Server) extractTranslations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("no story paths given"), nil
	}
	return jsonResult(s.svc.Translations(ctx, paths))
}

func (s *Server) storiesBySpeaker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("character_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.svc.StoriesBySpeaker(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no stories found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getStoryContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(StoryFormatContract), nil
}

func (s *Server) readStoryFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     StoryFormatContract,
		},
	}, nil
}
