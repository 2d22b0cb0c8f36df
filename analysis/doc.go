// Package analysis defines the persisted result of an audio analysis run.
//
// # Artifact
//
// An [AudioAnalysis] holds, per channel, a sequence of decimated [Point]
// values (RMS and peak over samples-per-point frames) and a [PeakTime]
// recording the loudest single sample and where it occurred. When loudness
// measurement was enabled it also carries per-channel true peaks, integrated
// loudness (LUFS) and loudness range (LU). When exactly one content item was
// analysed, the gain that item had at analysis time is recorded so a later
// consumer can correct for gain changes made since:
//
//	a, err := analysis.Read(path)
//	correction := a.GainCorrection(content.Gain())
//
// # Persistence
//
// Artifacts are written as JSON. [AudioAnalysis.Write] writes to a temporary
// file in the destination directory and renames it into place, so a failed
// write never leaves a partial artifact at the destination path. [Path]
// derives the destination from the digests of the analysed content, so
// re-analysing identical content overwrites the same file.
package analysis
