package knowledge

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	kbinternal "github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/internal"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/store"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGraphDepth = 1
	MaxGraphDepth     = 3

	maxSeedEntities  = 10
	maxRelationships = 100
)

// LoadGraph replaces the stored graph with the one in path. YAML and JSON
// files are both accepted. Entities referenced only by relationships are
// created without type or description.
func (m *Manager) LoadGraph(ctx context.Context, path string) (*entity.Graph, error) {
	if m.closed.Load() {
		return nil, errno.ErrClosed
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file %q: %w", path, err)
	}
	var g entity.Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse graph file %q: %w", path, err)
	}
	if err := normalizeGraph(&g); err != nil {
		return nil, fmt.Errorf("graph file %q: %w", path, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := store.ReplaceGraph(ctx, tx, &g); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit graph: %w", err)
	}

	logger.Info("[Knowledge] loaded graph %s (%d entities, %d relationships)",
		path, len(g.Entities), len(g.Relationships))
	return &g, nil
}

func normalizeGraph(g *entity.Graph) error {
	known := make(map[string]bool, len(g.Entities))
	for i := range g.Entities {
		e := &g.Entities[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return fmt.Errorf("entity #%d: %w", i, errno.ErrEntityNotSet)
		}
		known[strings.ToLower(e.Name)] = true
	}
	for i := range g.Relationships {
		r := &g.Relationships[i]
		r.Source, r.Target = strings.TrimSpace(r.Source), strings.TrimSpace(r.Target)
		if r.Source == "" || r.Target == "" {
			return fmt.Errorf("relationship #%d: %w", i, errno.ErrEntityNotSet)
		}
		if r.Relation == "" {
			r.Relation = "related_to"
		}
		for _, name := range []string{r.Source, r.Target} {
			if !known[strings.ToLower(name)] {
				known[strings.ToLower(name)] = true
				g.Entities = append(g.Entities, entity.Entity{Name: name})
			}
		}
	}
	return nil
}

// SearchGraph finds entities matching query and expands them breadth-first
// along relationships, in either direction, up to depth hops.
func (m *Manager) SearchGraph(ctx context.Context, query string, depth int) (*entity.Graph, error) {
	if m.closed.Load() {
		return nil, errno.ErrClosed
	}
	if strings.TrimSpace(query) == "" {
		return nil, errno.ErrEmptyQuery
	}
	if depth <= 0 {
		depth = DefaultGraphDepth
	}
	depth = min(depth, MaxGraphDepth)

	result := &entity.Graph{Entities: []entity.Entity{}, Relationships: []entity.Relationship{}}
	seeds, err := m.seedEntities(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return result, nil
	}

	order := append([]string(nil), seeds...)
	visited := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		visited[strings.ToLower(s)] = true
	}
	seenRel := make(map[int64]bool)
	frontier := seeds
	for hop := 0; hop < depth && len(frontier) > 0 && len(result.Relationships) < maxRelationships; hop++ {
		rels, err := m.edgesOf(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, r := range rels {
			if seenRel[r.id] || len(result.Relationships) >= maxRelationships {
				continue
			}
			seenRel[r.id] = true
			result.Relationships = append(result.Relationships, r.Relationship)
			for _, name := range []string{r.Source, r.Target} {
				if !visited[strings.ToLower(name)] {
					visited[strings.ToLower(name)] = true
					order = append(order, name)
					next = append(next, name)
				}
			}
		}
		frontier = next
	}

	entities, err := m.entitiesByName(ctx, order)
	if err != nil {
		return nil, err
	}
	result.Entities = entities
	return result, nil
}

// seedEntities ranks entities by how many query tokens hit their name
// (weight 2) or description (weight 1).
func (m *Manager) seedEntities(ctx context.Context, query string) ([]string, error) {
	tokens := kbinternal.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(tokens))
	args := make([]any, 0, 2*len(tokens)+1)
	clauses = append(clauses, `lower(name) = ?`)
	args = append(args, strings.ToLower(strings.TrimSpace(query)))
	for _, t := range tokens {
		clauses = append(clauses, `lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\'`)
		like := "%" + kbinternal.EscapeLike(t) + "%"
		args = append(args, like, like)
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT name, description FROM `+store.TableEntities+` WHERE `+strings.Join(clauses, " OR "), args...)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()

	type scored struct {
		name  string
		score int
	}
	var hits []scored
	for rows.Next() {
		var name, desc string
		if err := rows.Scan(&name, &desc); err != nil {
			return nil, err
		}
		lowerName, lowerDesc := strings.ToLower(name), strings.ToLower(desc)
		s := 0
		for _, t := range tokens {
			if strings.Contains(lowerName, t) {
				s += 2
			}
			if strings.Contains(lowerDesc, t) {
				s++
			}
		}
		if lowerName == strings.ToLower(strings.TrimSpace(query)) {
			s += 2 * len(tokens)
		}
		hits = append(hits, scored{name: name, score: s})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	if len(hits) > maxSeedEntities {
		hits = hits[:maxSeedEntities]
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names, nil
}

type storedRelationship struct {
	entity.Relationship
	id int64
}

func (m *Manager) edgesOf(ctx context.Context, names []string) ([]storedRelationship, error) {
	in, args := placeholders(names)
	args = append(args, args...)
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, source, target, relation, description, weight FROM `+store.TableRelationships+
			` WHERE source IN (`+in+`) OR target IN (`+in+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("expand graph: %w", err)
	}
	defer rows.Close()

	var rels []storedRelationship
	for rows.Next() {
		var r storedRelationship
		if err := rows.Scan(&r.id, &r.Source, &r.Target, &r.Relation, &r.Description, &r.Weight); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// entitiesByName loads entities and returns them in the order of names.
func (m *Manager) entitiesByName(ctx context.Context, names []string) ([]entity.Entity, error) {
	in, args := placeholders(names)
	rows, err := m.db.QueryContext(ctx,
		`SELECT name, type, description FROM `+store.TableEntities+` WHERE name IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]entity.Entity, len(names))
	for rows.Next() {
		var e entity.Entity
		if err := rows.Scan(&e.Name, &e.Type, &e.Description); err != nil {
			return nil, err
		}
		byName[strings.ToLower(e.Name)] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result := make([]entity.Entity, 0, len(names))
	for _, n := range names {
		if e, ok := byName[strings.ToLower(n)]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func placeholders(values []string) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return strings.Join(marks, ","), args
}
