package report

// PartitionBySubBottler buckets normalized rows into groups keyed by the
// derived subbottler value. Group order follows the order in which
// distinct keys first appear; row order inside a group follows the input.
// Every row lands in exactly one group.
func PartitionBySubBottler(rows []*Row) []*SubBottlerGroup {
	groups := make([]*SubBottlerGroup, 0)
	byName := make(map[string]*SubBottlerGroup)

	for _, row := range rows {
		g, ok := byName[row.SubBottler]
		if !ok {
			g = &SubBottlerGroup{Name: row.SubBottler}
			byName[row.SubBottler] = g
			groups = append(groups, g)
		}
		g.Rows = append(g.Rows, row)
	}
	return groups
}

// GroupNames returns the group names in partition order.
func GroupNames(groups []*SubBottlerGroup) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}
