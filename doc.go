// Package streamxlate is a client-side real-time speech-translation
// runtime. Given a source audio stream (file, memory buffer, or pipe), it
// drives a remote translation service over a WebSocket control channel and
// a media channel (WebRTC SFU room, or the same WebSocket), and produces a
// translated WAV stream plus a deduplicated live feed of transcription
// events for both languages.
//
// The entrypoint is Client: it acquires session credentials over REST,
// wires the transports, and hands the whole task graph to rt.Manager to
// supervise. Readers and writers for files, buffers, and subprocess pipes
// live in the adapter package; the pipeline configuration in config.
package streamxlate
