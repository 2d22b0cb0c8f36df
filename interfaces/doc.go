// Package interfaces defines the collaborators of the audio analysis
// pipeline.
//
// The analyser depends only on these abstractions, which allows the same run
// sequencing to drive decoded files in production and in-memory simulations
// in tests.
//
// # Core Interfaces
//
// [AudioDriver] produces time-ordered audio for a [Playlist]. Each call to
// Pass advances playback by one step and delivers any audio that became
// complete to the registered [AudioHandler]:
//
//	driver.SetAudioHandler(interfaces.AudioHandlerFunc(func(buf *audio.Buffers, t timeline.Time) error {
//	    return analyser.Analyse(buf, t)
//	}))
//	if err := driver.Seek(start); err != nil {
//	    return err
//	}
//	for {
//	    done, err := driver.Pass()
//	    if err != nil || done {
//	        return err
//	    }
//	}
//
// [LoudnessFilter] receives the same audio and reports EBU R128 style
// measurements at the end of a run. [ArtifactWriter] persists the result.
//
// # Configuration
//
// [DriverConfig] carries the parameters shared by driver implementations and
// validates them against the bounds in the limits package.
package interfaces
