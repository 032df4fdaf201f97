package upload

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wordcelclub/upload-gateway/pkg/bundlr"
	"github.com/wordcelclub/upload-gateway/pkg/funding"
)

// MaxPayloadBytes is the hard ceiling on binary payloads. Enforced before any
// funding work so an oversized payload never costs a network round trip.
const MaxPayloadBytes = 8_000_000

// allowedExtensions is the set of accepted image types. jpg is normalized to
// jpeg when building the Content-Type tag.
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// Error messages surfaced verbatim to callers.
const (
	msgFileNameMissing   = "File name not present"
	msgInvalidExtension  = "Invalid file extension"
	msgTypeNotAllowed    = "File type not allowed"
	msgPayloadTooLarge   = "Please upload an image less than 8mb in size"
	msgImageUploadFailed = "Error while trying to upload image to arweave"
	msgUploadFailed      = "Error while trying to upload to arweave"
)

// Descriptor is what a Source produces after validation: the payload length
// used for the price quote, the tags to attach, the funding policy for this
// content class, and the message reported if the network accepts no id.
type Descriptor struct {
	Length        int64
	Tags          []bundlr.Tag
	Policy        funding.Policy
	FailureReport string
}

// Source abstracts payload provisioning so file-backed, in-memory, and JSON
// content share one upload pipeline. Prepare validates the payload and
// derives its descriptor without materializing bytes; Bytes is only called
// after funding resolves.
type Source interface {
	Prepare() (Descriptor, error)
	Bytes() ([]byte, error)
}

// FileSource is a payload staged in a temporary file, as produced by
// multipart form decoding. Name is the client-supplied filename whose suffix
// determines the content type.
type FileSource struct {
	Name   string
	Path   string
	Size   int64
	Policy funding.Policy
}

// Prepare validates the filename suffix against the image allowlist and the
// size ceiling, and derives the Content-Type tag.
func (s FileSource) Prepare() (Descriptor, error) {
	if s.Name == "" {
		return Descriptor{}, errors.New(msgFileNameMissing)
	}

	ext, err := extensionOf(s.Name)
	if err != nil {
		return Descriptor{}, err
	}

	if s.Size > MaxPayloadBytes {
		return Descriptor{}, errors.New(msgPayloadTooLarge)
	}

	return Descriptor{
		Length:        s.Size,
		Tags:          imageTags(ext),
		Policy:        s.Policy,
		FailureReport: msgImageUploadFailed,
	}, nil
}

// Bytes reads the staged file from disk.
func (s FileSource) Bytes() ([]byte, error) {
	return os.ReadFile(s.Path)
}

// BlobSource is an in-memory payload, typically fetched from a remote URL.
// ContentType is the declared MIME type whose subtype determines the
// extension.
type BlobSource struct {
	ContentType string
	Data        []byte
	Policy      funding.Policy
}

// Prepare validates the MIME subtype against the image allowlist and the
// size ceiling.
func (s BlobSource) Prepare() (Descriptor, error) {
	ext, err := extensionOf(s.ContentType)
	if err != nil {
		return Descriptor{}, err
	}

	if int64(len(s.Data)) > MaxPayloadBytes {
		return Descriptor{}, errors.New(msgPayloadTooLarge)
	}

	return Descriptor{
		Length:        int64(len(s.Data)),
		Tags:          imageTags(ext),
		Policy:        s.Policy,
		FailureReport: msgImageUploadFailed,
	}, nil
}

// Bytes returns the in-memory payload.
func (s BlobSource) Bytes() ([]byte, error) {
	return s.Data, nil
}

// JSONSource is a serialized JSON document with caller-supplied tags. It
// skips extension validation and the binary size ceiling: documents are
// small, text, and tagged by the caller.
type JSONSource struct {
	Data   []byte
	Tags   []bundlr.Tag
	Policy funding.Policy
}

// Prepare rejects empty documents and passes the caller tags through.
func (s JSONSource) Prepare() (Descriptor, error) {
	if len(s.Data) == 0 {
		return Descriptor{}, errors.New("empty JSON payload")
	}
	return Descriptor{
		Length:        int64(len(s.Data)),
		Tags:          s.Tags,
		Policy:        s.Policy,
		FailureReport: msgUploadFailed,
	}, nil
}

// Bytes returns the UTF-8 document bytes.
func (s JSONSource) Bytes() ([]byte, error) {
	return s.Data, nil
}

// extensionOf pulls the segment after the last '.' or '/' of a filename or
// MIME type and checks it against the allowlist.
func extensionOf(nameOrType string) (string, error) {
	sep := strings.LastIndexAny(nameOrType, "./")
	if sep < 0 || sep == len(nameOrType)-1 {
		return "", errors.New(msgInvalidExtension)
	}
	ext := strings.ToLower(nameOrType[sep+1:])
	if !allowedExtensions[ext] {
		return "", errors.New(msgTypeNotAllowed)
	}
	return ext, nil
}

// imageTags builds the Content-Type tag for an allowed extension, folding
// jpg into jpeg.
func imageTags(ext string) []bundlr.Tag {
	if ext == "jpg" {
		ext = "jpeg"
	}
	return []bundlr.Tag{{Name: "Content-Type", Value: fmt.Sprintf("image/%s", ext)}}
}
