package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/pkg/errno"
	"github.com/stretchr/testify/require"
)

const testGraph = `
entities:
  - name: Acme Corp
    type: company
    description: Maker of rockets and anvils
  - name: Wile E. Coyote
    type: person
    description: Long-time customer
  - name: Road Runner
    type: animal
relationships:
  - source: Wile E. Coyote
    target: Acme Corp
    relation: buys_from
  - source: Wile E. Coyote
    target: Road Runner
    relation: chases
  - source: Road Runner
    target: Desert
    relation: lives_in
`

func loadTestGraph(t *testing.T, m *Manager, content string) (*entity.Graph, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return m.LoadGraph(context.Background(), path)
}

func names(es []entity.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name
	}
	return out
}

func TestLoadGraphAddsImplicitEntities(t *testing.T) {
	m := openTestManager(t, "")
	g, err := loadTestGraph(t, m, testGraph)
	require.NoError(t, err)
	require.Len(t, g.Entities, 4)
	require.Equal(t, "Desert", g.Entities[3].Name)
}

func TestSearchGraphExpandsByDepth(t *testing.T) {
	ctx := context.Background()
	m := openTestManager(t, "")
	_, err := loadTestGraph(t, m, testGraph)
	require.NoError(t, err)

	g, err := m.SearchGraph(ctx, "acme corp", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Acme Corp", "Wile E. Coyote"}, names(g.Entities))
	require.Len(t, g.Relationships, 1)
	require.Equal(t, "buys_from", g.Relationships[0].Relation)

	g, err = m.SearchGraph(ctx, "acme corp", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Acme Corp", "Wile E. Coyote", "Road Runner"}, names(g.Entities))
	require.Len(t, g.Relationships, 2)

	g, err = m.SearchGraph(ctx, "acme corp", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"Acme Corp", "Wile E. Coyote", "Road Runner", "Desert"}, names(g.Entities))
	require.Len(t, g.Relationships, 3)
}

func TestSearchGraphMatchesDescriptions(t *testing.T) {
	ctx := context.Background()
	m := openTestManager(t, "")
	_, err := loadTestGraph(t, m, testGraph)
	require.NoError(t, err)

	g, err := m.SearchGraph(ctx, "who sells anvils?", 0)
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", g.Entities[0].Name)
	require.Equal(t, "company", g.Entities[0].Type)

	g, err = m.SearchGraph(ctx, "spaceship", 1)
	require.NoError(t, err)
	require.Empty(t, g.Entities)
	require.Empty(t, g.Relationships)

	_, err = m.SearchGraph(ctx, "", 1)
	require.ErrorIs(t, err, errno.ErrEmptyQuery)
}

func TestLoadGraphReplacesPreviousGraph(t *testing.T) {
	ctx := context.Background()
	m := openTestManager(t, "")
	_, err := loadTestGraph(t, m, testGraph)
	require.NoError(t, err)
	_, err = loadTestGraph(t, m, `{"entities":[{"name":"Globex"}],"relationships":[]}`)
	require.NoError(t, err)

	g, err := m.SearchGraph(ctx, "acme", 1)
	require.NoError(t, err)
	require.Empty(t, g.Entities)
	g, err = m.SearchGraph(ctx, "globex", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Globex"}, names(g.Entities))
}

func TestLoadGraphRejectsUnnamedEntities(t *testing.T) {
	m := openTestManager(t, "")
	_, err := loadTestGraph(t, m, "relationships:\n  - source: A\n    target: ''\n")
	require.ErrorIs(t, err, errno.ErrEntityNotSet)
	_, err = loadTestGraph(t, m, "entities: [")
	require.Error(t, err)
}
