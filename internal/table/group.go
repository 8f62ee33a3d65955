package table

// Group is one kanban column.
type Group struct {
	Key     string   `json:"key"`
	Records []Record `json:"-"`
}

// GroupBy buckets records by the rendered value of column. Buckets are
// ordered by first appearance.
func (t *Table) GroupBy(column string) []Group {
	var groups []Group
	index := map[string]int{}
	for _, r := range t.records {
		k := Cell(r, column)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
