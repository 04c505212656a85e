package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/common/expfmt"
)

// WriteText writes the recorder's metrics in the Prometheus text format
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile replaces path with the current metrics, for the node
// exporter's textfile collector. Readers never see a partial file.
func (r *Recorder) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".prom")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	if err := r.WriteText(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing metrics file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storing metrics file: %w", err)
	}
	return nil
}
