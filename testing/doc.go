// Package testing provides in-memory doubles of the analysis pipeline's
// collaborators for deterministic tests.
//
// # Overview
//
// The doubles mirror the production player and content types but operate
// entirely on generated audio, with logs of what was delivered so tests can
// verify sequencing without decoding files.
//
//   - [SimulatedDriver] implements interfaces.AudioDriver by replaying a
//     fixed list of blocks, one per pass, with optional error injection.
//   - [SimulatedPlaylist] and [SimulatedContent] implement
//     interfaces.Playlist and interfaces.Content from plain values.
//   - [SimulatedWriter] implements interfaces.ArtifactWriter, recording
//     writes and optionally failing them.
//
// # Usage
//
// The package name shadows the standard library, so import it under an alias:
//
//	import testsim "github.com/opd-ai/audioanalysis/testing"
//
//	signal := audio.NewBuffers(2, 48000)
//	driver := testsim.NewSimulatedDriver(testsim.SplitSignal(signal, 0, 48000, 4800))
//	playlist := testsim.NewSimulatedPlaylist(2, 48000, timeline.FromSeconds(1))
//	playlist.AddContent(&testsim.SimulatedContent{Audio: true, DigestValue: "a"})
package testing
