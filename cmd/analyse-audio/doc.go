// Package main provides the analyse-audio command.
//
// analyse-audio mixes one or more audio files onto a timeline, computes their
// per-channel level envelope, sample and true peaks and loudness, and writes
// the result as an analysis artifact named after the content's digests:
//
//	analyse-audio music.wav dialogue.flac@12.5:-3 --points 2048
//
// Each argument is a file path, optionally followed by @seconds to place it on
// the timeline and :dB to apply a gain. Settings are read from
// audioanalysis.json when present and can be overridden by flags.
package main
