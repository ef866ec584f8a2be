package access

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadDirectory читает StaticDirectory из JSON-файла.
//
// Формат:
//
//	{
//	  "sectors":     {"<user_id>": ["<sector_id>", ...]},
//	  "credentials": {"<user_id>": "<credential>"}
//	}
func LoadDirectory(path string) (*StaticDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var dir StaticDirectory
	if err := json.Unmarshal(b, &dir); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}
	return &dir, nil
}
