package export

import "github.com/wesm/emailsearch/internal/fileutil"

// DownloadResult reports where a download was written, or why it failed.
type DownloadResult struct {
	Path string
	Err  error
}

// Download writes csv to dir/filename in the background and returns
// immediately. The returned channel receives exactly one result and is then
// closed. Callers that do not care about the outcome may ignore it.
func Download(dir, filename, csv string) <-chan DownloadResult {
	ch := make(chan DownloadResult, 1)
	go func() {
		defer close(ch)
		path, err := fileutil.WriteFileAtomic(dir, SanitizeFilename(filename), []byte(csv), 0644)
		ch <- DownloadResult{Path: path, Err: err}
	}()
	return ch
}

// SanitizeFilename removes or replaces characters that are invalid in filenames.
func SanitizeFilename(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return "export.csv"
	}
	return string(result)
}
