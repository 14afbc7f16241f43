package repeater

// Changes summarises how a submission changed one list.
type Changes struct {
	// Address is the group's address.
	Address string

	// Added holds the ids of items that were not stored before.
	Added []string

	// Kept holds the ids of stored items that survived the submission.
	Kept []string

	// Removed holds stored items that were left out or pruned.
	Removed []*Item
}

// Empty reports whether nothing was added or removed.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Removed collects the removed items of every list.
func Removed(changes []*Changes) []*Item {
	var out []*Item
	for _, c := range changes {
		out = append(out, c.Removed...)
	}
	return out
}
