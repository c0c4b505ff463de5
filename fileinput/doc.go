// Package fileinput describes files passed to Replicate and encodes them for
// transport.
//
// A file is one of three Input variants:
//
//   - Bytes: in-memory content with optional filename and content type
//   - Path: a local file, read only when the request is sent
//   - URL: a remote file passed through untouched
//
// Bytes and Path inputs can be sent either by uploading them to the Files
// API as multipart/form-data (Multipart, the default) or by embedding them
// in the prediction input as a base64 data URL (Base64DataURL). Data URLs
// are capped at DefaultMaxDataURLSize unless the caller chooses another
// limit; larger payloads are rejected rather than sent.
//
// Content types are taken from the caller, then the filename extension,
// then sniffed from the bytes with github.com/gabriel-vasile/mimetype.
package fileinput
