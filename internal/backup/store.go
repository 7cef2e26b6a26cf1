package backup

// Collection names as they appear in the persistence layer and in the
// domainState of a snapshot document.
const (
	CollectionMaterials       = "materials"
	CollectionPersonnel       = "personnel"
	CollectionCheckoutRecords = "checkoutRecords"
	CollectionAuditLogs       = "auditLogs"
	CollectionSettings        = "settings"
)

// Collections lists every collection captured in a snapshot, in the order
// they are written back during a restore.
var Collections = []string{
	CollectionMaterials,
	CollectionPersonnel,
	CollectionCheckoutRecords,
	CollectionAuditLogs,
	CollectionSettings,
}

// Store is the persistence collaborator. The inventory domain owns the shape
// of each collection; this subsystem treats the content as opaque bytes and
// only needs a get/set contract over named collections.
type Store interface {
	// Get returns the raw content of a named collection, or nil if the
	// collection has never been written.
	Get(name string) ([]byte, error)

	// Put replaces the content of a named collection.
	Put(name string, content []byte) error

	// Close releases the underlying storage.
	Close() error
}

// emptyCollectionValue returns the serialized zero value for a collection:
// the settings aggregate is an object, everything else is a list.
func emptyCollectionValue(name string) []byte {
	if name == CollectionSettings {
		return []byte("{}")
	}
	return []byte("[]")
}
