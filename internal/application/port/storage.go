package port

// FileStorage persists raw document content on local disk
type FileStorage interface {
	// Save stores content under the case's folder and returns the stored path
	Save(caseID, filename string, content []byte) (string, error)

	// Read returns the content stored at path
	Read(path string) ([]byte, error)
}
