package types

// Status is a type for the lifecycle status of a resource in the database.
// Deleted resources are retained but excluded from queries by default.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

func (s Status) String() string {
	return string(s)
}
