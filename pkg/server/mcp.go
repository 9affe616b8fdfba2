package server

import (
	"context"
	"fmt"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type askCourseParams struct {
	Query  string `json:"query" jsonschema:"Question about the course"`
	Course string `json:"course" jsonschema:"Course name the uploaded lectures are tagged with"`
	UserID string `json:"user_id" jsonschema:"Identity of the user who uploaded the lectures"`
}

type resetHistoryParams struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Identity of the user. Clears every user's history if omitted"`
}

// NewMCP creates an MCP server exposing course question answering as tools
func NewMCP(chatUC *chat.UseCase, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "coursedash",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_course",
		Description: "Answer a question about a course using the user's uploaded lecture documents",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *askCourseParams) (*mcp.CallToolResult, any, error) {
		if params.Query == "" {
			return nil, nil, goerr.Wrap(model.ErrInvalidInput, "query is required")
		}

		answer, err := chatUC.Respond(ctx, chat.RespondInput{
			Query:  params.Query,
			Course: model.Course(params.Course),
			UserID: model.UserID(params.UserID),
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: answer},
			},
		}, nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_history",
		Description: "Clear conversation history",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *resetHistoryParams) (*mcp.CallToolResult, any, error) {
		chatUC.ResetHistory(params.UserID)

		target := params.UserID
		if target == "" {
			target = "all users"
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("History cleared for %s", target)},
			},
		}, nil, nil
	})

	return server
}
