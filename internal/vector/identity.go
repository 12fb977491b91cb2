package vector

import (
	"fmt"

	"github.com/google/uuid"
)

// pointNamespace seeds the UUIDv5 derivation of point ids. Changing it
// would orphan every previously written point.
var pointNamespace = uuid.MustParse("7f9c34e8-1b2a-4c5d-9e6f-0a1b2c3d4e5f")

// PointID derives the vector-index id for a chunk from its document id
// and chunk index. The derivation is deterministic, so re-ingesting a
// document overwrites its points instead of accumulating duplicates.
func PointID(docID string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s#%d", docID, chunkIndex))).String()
}
