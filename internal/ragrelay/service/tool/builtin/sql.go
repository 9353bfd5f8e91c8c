package builtin

import (
	"context"
	"fmt"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/database"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
)

func sqlQueryDescriptor(q SQLQuerier) tool.Descriptor {
	return tool.Descriptor{
		Description: "Answer a question about business data by running a read-only SQL query. " +
			"Accepts a natural-language question or a SELECT statement.",
		Parameters: []tool.ParameterDef{
			{Name: tool.ArgQuestion, Type: "string", Description: "question or SELECT statement", Required: true},
			{Name: "page", Type: "integer", Description: "1-based result page"},
			{Name: "page_size", Type: "integer", Description: "rows per page"},
			{Name: "format", Type: "string", Enum: []string{database.FormatMarkdown, database.FormatJSON}},
		},
		Enabled: q != nil,
		State:   entity.StateDatabaseQuery,
		Display: "Querying the database",
		Factory: func() (tool.Tool, error) {
			return tool.FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
				question, err := stringArg(args, tool.ArgQuestion)
				if err != nil {
					return nil, err
				}
				format := optionalString(args, "format")
				res, err := q.Query(ctx, question,
					intArg(args, "page", 1), intArg(args, "page_size", database.DefaultPageSize), format)
				if err != nil {
					return nil, fmt.Errorf("sql query: %w", err)
				}
				if res.Format == database.FormatMarkdown {
					return res.Text, nil
				}
				return res, nil
			}), nil
		},
	}
}
