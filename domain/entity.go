package domain

// EntityType names a kind of persisted record for progress and error counters.
type EntityType string

const (
	EntityRawPage   EntityType = "raw-page"
	EntityLocalPage EntityType = "local-page"
	EntityLocalLink EntityType = "local-link"
	EntityRedirect  EntityType = "redirect"
)

// EntityTypes lists every counted entity type.
var EntityTypes = []EntityType{
	EntityRawPage,
	EntityLocalPage,
	EntityLocalLink,
	EntityRedirect,
}
