package member

import "context"

type adjacency struct {
	byID     map[string]Record
	children map[string][]string
}

func buildAdjacency(records []Record) adjacency {
	index := adjacency{
		byID:     make(map[string]Record, len(records)),
		children: make(map[string][]string),
	}
	for _, record := range records {
		index.byID[record.ID] = record
		if record.ParentID != nil && *record.ParentID != "" {
			index.children[*record.ParentID] = append(index.children[*record.ParentID], record.ID)
		}
	}
	return index
}

// Descendants returns every record below id in breadth-first order.
func (s *Service) Descendants(ctx context.Context, id string) ([]Record, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	index := buildAdjacency(records)
	if _, ok := index.byID[id]; !ok {
		return nil, ErrMemberNotFound
	}

	result := make([]Record, 0)
	visited := map[string]struct{}{id: {}}
	queue := append([]string(nil), index.children[id]...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		result = append(result, index.byID[current])
		queue = append(queue, index.children[current]...)
	}

	return result, nil
}

// Ancestors walks parent links upwards, nearest first. A parent id that
// points at a missing record ends the chain.
func (s *Service) Ancestors(ctx context.Context, id string) ([]Record, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	index := buildAdjacency(records)
	current, ok := index.byID[id]
	if !ok {
		return nil, ErrMemberNotFound
	}

	result := make([]Record, 0)
	visited := map[string]struct{}{id: {}}

	for current.ParentID != nil {
		parentID := *current.ParentID
		if _, seen := visited[parentID]; seen {
			break
		}
		parent, ok := index.byID[parentID]
		if !ok {
			break
		}
		visited[parentID] = struct{}{}
		result = append(result, parent)
		current = parent
	}

	return result, nil
}
