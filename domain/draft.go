package domain

import "strings"

// ImageFile is an attachment picked by the user, not yet uploaded.
type ImageFile struct {
	Name string
	Data []byte
}

// Draft is the user's pending input: free text, an image, or both.
type Draft struct {
	Text  string
	Image *ImageFile
}

// TrimmedText returns the text with surrounding whitespace removed.
func (d Draft) TrimmedText() string {
	return strings.TrimSpace(d.Text)
}

// Empty reports whether the draft carries nothing worth sending.
func (d Draft) Empty() bool {
	return d.TrimmedText() == "" && d.Image == nil
}
