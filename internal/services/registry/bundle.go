package registry

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/mcoot/gamehub/internal/api/request"
	"github.com/mcoot/gamehub/internal/model"
)

var requiredManifestFields = []string{"server_entry", "client_entry"}

// validateBundle checks an extracted bundle directory and returns its manifest
func validateBundle(dir string) (model.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, model.ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Manifest{}, &model.BundleError{
			Code:    model.BundleConfigMissing,
			Missing: []string{model.ManifestFile},
		}
	}
	if err != nil {
		return model.Manifest{}, err
	}

	// Presence is checked on the raw object; a typed decode cannot tell an
	// absent key from an empty one.
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return model.Manifest{}, &model.BundleError{Code: model.BundleConfigInvalidJSON}
	}
	manifest, err := decodeManifest(raw)
	if err != nil {
		return model.Manifest{}, err
	}

	var missing []string
	for _, f := range requiredManifestFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return model.Manifest{}, &model.BundleError{
			Code:    model.BundleConfigFieldsMissing,
			Missing: missing,
		}
	}

	var missingFiles []string
	for _, entry := range []string{manifest.ServerEntry, manifest.ClientEntry} {
		if entry != "" && !entryExists(dir, entry) {
			missingFiles = append(missingFiles, entry)
		}
	}
	if len(missingFiles) > 0 {
		return model.Manifest{}, &model.BundleError{
			Code:         model.BundleEntryNotFound,
			MissingFiles: missingFiles,
		}
	}

	return manifest, nil
}

func entryExists(dir, entry string) bool {
	if !filepath.IsLocal(entry) {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, entry))
	return err == nil
}

// readManifest decodes the manifest of a committed version
func readManifest(dir string) (model.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, model.ManifestFile))
	if err != nil {
		return model.Manifest{}, err
	}
	return decodeManifest(raw)
}

// decodeManifest decodes a manifest whose player counts may be written as
// numbers or numeric strings
func decodeManifest(raw []byte) (model.Manifest, error) {
	var doc struct {
		model.Manifest
		MinPlayers json.RawMessage `json:"min_players"`
		MaxPlayers json.RawMessage `json:"max_players"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Manifest{}, &model.BundleError{Code: model.BundleConfigInvalidJSON}
	}

	m := doc.Manifest
	counts := []struct {
		field string
		raw   json.RawMessage
		dst   *int
	}{
		{"min_players", doc.MinPlayers, &m.MinPlayers},
		{"max_players", doc.MaxPlayers, &m.MaxPlayers},
	}
	for _, c := range counts {
		n, ok, err := request.Int(c.raw, c.field)
		if err != nil {
			return model.Manifest{}, err
		}
		if ok {
			*c.dst = n
		}
	}
	return m, nil
}

// Slugify derives a game id from a display name
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "game"
	}
	return slug
}

// validPathSegment reports whether s can be used as a single directory name
// under the storage root
func validPathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && filepath.IsLocal(s) && !strings.ContainsAny(s, `/\`)
}
