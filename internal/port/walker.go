package port

// FileWalker lists files under a root that match its glob rules.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// QuestionReader reads a batch question file, one question per entry.
type QuestionReader interface {
	ReadQuestions(path string) ([]string, error)
}
