// Package player mixes the content of a playlist into one time-ordered audio
// signal.
//
// A [Playlist] holds [content.Content] items placed on the timeline and fixes
// the channel count and frame rate of the mixed output. A [Player] implements
// [interfaces.AudioDriver]: on every pass the stream that lags furthest behind
// decodes one block, which is remapped to the playlist's channel layout,
// resampled to its frame rate, gain-adjusted and pushed into a
// [merger.Merger]. Everything that no stream can still reach is then pulled
// from the merger and handed to the registered handler, with silence filling
// any gaps, so the handler sees a continuous signal from the seek position to
// the end of the playlist.
//
//	playlist, err := player.NewPlaylist(2, 48000)
//	if err != nil {
//	    return err
//	}
//	playlist.Add(music)
//	p, err := player.New(playlist, limits.DefaultBlockFrames)
//	if err != nil {
//	    return err
//	}
//	p.SetAudioHandler(analyser)
//	if err := p.Seek(0); err != nil {
//	    return err
//	}
//	for done := false; !done; {
//	    if done, err = p.Pass(); err != nil {
//	        return err
//	    }
//	}
package player
