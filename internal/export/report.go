package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tripclean/internal/pipeline"
)

// WriteAuditReport writes the run audit as pretty-printed JSON alongside
// the cleaned dataset.
func WriteAuditReport(path string, audit pipeline.Audit, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(audit, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write audit report: %w", err)
	}

	logger.Info("audit report written", "path", path, "run_id", audit.RunID)
	return nil
}
