package universe

import (
	"fmt"
	"strings"

	"owing/backend/internal/store"
)

// objectKey builds the storage key for a file in a folder. Path
// separators in the filename are flattened so a key never escapes its
// folder prefix.
func objectKey(folder *store.UniverseFolder, filename string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(filename)
	return fmt.Sprintf("projects/%d/folders/%d/%s", folder.ProjectID, folder.ID, clean)
}
