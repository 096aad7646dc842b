package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/reference"
)

// record is one fixture entry.
type record map[string]any

// loadFixture reads a JSON or YAML list of records. When idField is set,
// every record must carry it.
func loadFixture(path, idField string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "fixture", "Load", "read fixture "+path)
	}

	var records []record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	case ".json":
		err = json.Unmarshal(data, &records)
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "fixture", "Load",
			fmt.Sprintf("unsupported fixture extension %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, errors.WrapInvalid(err, "fixture", "Load", "decode fixture "+path)
	}

	if idField == "" {
		return records, nil
	}
	for i, r := range records {
		if id, ok := r[idField]; !ok || id == nil {
			return nil, errors.WrapInvalid(errors.ErrNoIdentity, "fixture", "Load",
				fmt.Sprintf("record %d has no %q field", i, idField))
		}
	}
	return records, nil
}

// recordIdentity identifies records by idField, or by the hash of their
// canonical JSON encoding when idField is empty.
func recordIdentity(idField string) reference.IdentityProvider[record] {
	if idField == "" {
		return reference.HashedIdentity(func(r record) []byte {
			// encoding/json sorts map keys, so equal records encode equally.
			b, err := json.Marshal(r)
			if err != nil {
				return nil
			}
			return b
		})
	}
	return reference.IdentityFunc[record](func(r record) (any, bool) {
		id, ok := r[idField]
		if !ok || id == nil {
			return nil, false
		}
		return fmt.Sprint(id), true
	})
}

// writeRecords prints records as indented JSON or as YAML.
func writeRecords(w io.Writer, format string, records []record) error {
	if records == nil {
		records = []record{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.WrapInvalid(errors.ErrInvalidData, "output", "Write",
			fmt.Sprintf("unsupported output format %q", format))
	}
}
