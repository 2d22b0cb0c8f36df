package analyser

import (
	"fmt"

	"github.com/opd-ai/audioanalysis/analysis"
	"github.com/opd-ai/audioanalysis/interfaces"
)

// PathFor returns where the analysis of playlist is stored under dir. It
// depends on the digest, position, trim and gain of each audio item.
func PathFor(dir string, playlist interfaces.Playlist) (string, error) {
	var items []analysis.PathItem
	for i, c := range playlist.Content() {
		if !c.HasAudio() {
			continue
		}
		d, err := c.Digest()
		if err != nil {
			return "", fmt.Errorf("failed to digest content %d: %w", i, err)
		}
		items = append(items, analysis.PathItem{
			Digest:   d,
			Position: c.Position(),
			Trim:     c.TrimStart(),
			Gain:     c.Gain(),
		})
	}
	return analysis.Path(dir, items), nil
}
