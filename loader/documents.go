package loader

import (
	"net/url"
	"os"
	"path/filepath"

	ld "github.com/piprate/json-gold/ld"
)

// Compile-time type check
var _ ld.DocumentLoader = (*FileDocumentLoader)(nil)

// FileDocumentLoader is an implementation of ld.DocumentLoader for file://
// URIs and for remote context URLs mapped onto local files. It never
// touches the network.
type FileDocumentLoader struct {
	root    string
	mapping map[string]string
}

// NewFileDocumentLoader creates a loader that resolves relative file paths against root
func NewFileDocumentLoader(root string) *FileDocumentLoader {
	return &FileDocumentLoader{root: root, mapping: map[string]string{}}
}

// Map serves the file at path whenever uri is requested
func (dl *FileDocumentLoader) Map(uri, path string) {
	dl.mapping[uri] = path
}

// LoadDocument returns a RemoteDocument containing the contents of the
// JSON-LD resource from the given URL.
func (dl *FileDocumentLoader) LoadDocument(uri string) (*ld.RemoteDocument, error) {
	if path, has := dl.mapping[uri]; has {
		return dl.loadFile(uri, path)
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}

	switch parsedURL.Scheme {
	case "file":
		return dl.loadFile(uri, filepath.FromSlash(parsedURL.Path))
	case "":
		return dl.loadFile(uri, filepath.FromSlash(uri))
	default:
		err := "Unsupported URI scheme: " + parsedURL.Scheme
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
}

func (dl *FileDocumentLoader) loadFile(uri, path string) (*ld.RemoteDocument, error) {
	if !filepath.IsAbs(path) && dl.root != "" {
		path = filepath.Join(dl.root, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	defer file.Close()

	document, err := ld.DocumentFromReader(file)
	if err != nil {
		return nil, err
	}
	return &ld.RemoteDocument{DocumentURL: uri, Document: document}, nil
}
