package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoTransactionFiles is returned when a directory holds no usable input
var ErrNoTransactionFiles = errors.New("no transaction files found")

// transactionExts are the extensions the loader can read
var transactionExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative directories
// are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindTransactionFiles lists the workbooks and CSV files in dir, oldest first
func (d *Discovery) FindTransactionFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isTransactionFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// ties broken by name so the order is stable
	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// Latest returns the most recently modified transaction file in dir
func (d *Discovery) Latest(dir string) (FileInfo, error) {
	files, err := d.FindTransactionFiles(dir)
	if err != nil {
		return FileInfo{}, err
	}
	if len(files) == 0 {
		return FileInfo{}, fmt.Errorf("%w in %s", ErrNoTransactionFiles, d.resolve(dir))
	}
	return files[len(files)-1], nil
}

// ResolveInput returns path itself for files and the latest transaction
// file for directories
func (d *Discovery) ResolveInput(path string) (string, error) {
	full := d.resolve(path)
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		// missing files are reported by the input validator
		return full, nil
	}
	latest, err := d.Latest(full)
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}

func isTransactionFile(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	return transactionExts[strings.ToLower(filepath.Ext(name))]
}
