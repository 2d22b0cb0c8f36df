// Package content provides the audio items placed on a playlist and the
// decoders that read them.
//
// A [Content] is a file (or generated signal) positioned on the timeline with
// an optional trim and gain. Its samples are read through a [Source], which
// decodes to float32 [audio.Buffers] at the item's native rate and layout:
//
//	src, err := content.Open("dialogue.flac")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//	for {
//	    buf, err := src.Read(4800)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
// Supported formats are WAV (16, 24 and 32 bit PCM), FLAC and Ogg Opus.
// [MemorySource] serves generated signals for tests and tooling.
//
// Content digests are BLAKE2b-256 hashes of the file bytes and identify the
// item when deriving analysis paths.
package content
