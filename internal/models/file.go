package models

// File is a binary attachment supplied by the caller.
type File interface {
	Name() string
	MIMEType() string
	Size() int64
	ReadAll() ([]byte, error)
}

// Blob is an in-memory File.
type Blob struct {
	FileName string
	MIME     string
	Data     []byte
}

// NewBlob constructs an in-memory attachment.
func NewBlob(name, mimeType string, data []byte) *Blob {
	return &Blob{FileName: name, MIME: mimeType, Data: data}
}

func (b *Blob) Name() string     { return b.FileName }
func (b *Blob) MIMEType() string { return b.MIME }
func (b *Blob) Size() int64      { return int64(len(b.Data)) }

func (b *Blob) ReadAll() ([]byte, error) {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out, nil
}
