package intake

// Supported reports whether an upload with this MIME type and file name
// resolves to a stageable kind.
func Supported(mimeType, fileName string) bool {
	_, ok := resolve(mimeType, fileName)
	return ok
}
