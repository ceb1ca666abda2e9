// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Larder tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/larder/internal/catalog"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/recipe"
	"github.com/starford/larder/internal/shopping"
)

const shoppingListURI = "larder://shopping-list"

// TagLister lists tag reference data.
type TagLister interface {
	Tags(ctx context.Context) ([]models.Tag, error)
}

// Deps are the read-side components the tools call.
type Deps struct {
	Catalog   *catalog.Catalog
	Tags      TagLister
	Projector *recipe.Projector
	Shopping  *shopping.Aggregator
}

// Server wraps the MCP server with Larder tools. Every call acts as a
// single configured user.
type Server struct {
	mcp   *server.MCPServer
	deps  Deps
	actor models.Actor
}

// New creates a new MCP server with all Larder tools registered.
func New(deps Deps, actor models.Actor) *Server {
	s := &Server{deps: deps, actor: actor}

	s.mcp = server.NewMCPServer(
		"Larder",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_ingredients",
		mcp.WithDescription("Search the ingredient catalog by name. Prefix matches rank first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Ingredient name or fragment")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchIngredients)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every recipe tag with its slug and color."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List recipes, newest first, with optional filters."),
		mcp.WithString("tags", mcp.Description("Comma-separated tag slugs; a recipe matches if it has any of them")),
		mcp.WithNumber("author", mcp.Description("Author user id")),
		mcp.WithBoolean("favorited", mcp.Description("Only recipes in the user's favorites")),
		mcp.WithBoolean("in_cart", mcp.Description("Only recipes in the user's shopping cart")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.listRecipes)

	s.mcp.AddTool(mcp.NewTool("get_recipe",
		mcp.WithDescription("Read a recipe with its tags, author and ingredient amounts."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Recipe id")),
	), s.getRecipe)

	s.mcp.AddTool(mcp.NewTool("shopping_list",
		mcp.WithDescription("Combined ingredient totals for every recipe in the user's shopping cart."),
	), s.shoppingList)

	s.mcp.AddResource(
		mcp.NewResource(shoppingListURI, "Shopping List",
			mcp.WithResourceDescription("The user's shopping list as plain text."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readShoppingListResource,
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

func (s *Server) searchIngredients(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.deps.Catalog.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.deps.Tags.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) listRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := recipe.Query{
		AuthorID:  int64(req.GetInt("author", 0)),
		Favorited: req.GetBool("favorited", false),
		InCart:    req.GetBool("in_cart", false),
		Limit:     req.GetInt("limit", 0),
	}
	for _, slug := range strings.Split(req.GetString("tags", ""), ",") {
		if slug = strings.TrimSpace(slug); slug != "" {
			q.TagSlugs = append(q.TagSlugs, slug)
		}
	}
	views, err := s.deps.Projector.List(ctx, s.actor, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(views)
}

func (s *Server) getRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.deps.Projector.Get(ctx, s.actor, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recipe %d: %v", id, err)), nil
	}
	return jsonResult(v)
}

func (s *Server) shoppingList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.shoppingText(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) readShoppingListResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text, err := s.shoppingText(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      shoppingListURI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}

func (s *Server) shoppingText(ctx context.Context) (string, error) {
	report, err := s.deps.Shopping.Aggregate(ctx, s.actor)
	if err != nil {
		return "", err
	}
	var lines []string
	for line := range report.Lines() {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
