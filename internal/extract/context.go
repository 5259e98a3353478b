package extract

import (
	"fmt"
	"strings"

	"github.com/schemedesk/district-kb/internal/entity"
)

// FormatChatContext renders latest extraction rows as the plain-text context
// block fed to the chat prompt. Rows that fail to decode are skipped.
func FormatChatContext(rows []*entity.Extraction) string {
	var b strings.Builder
	currentSector := ""

	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			continue
		}
		if row.SectorName != currentSector {
			if currentSector != "" {
				b.WriteString("\n")
			}
			currentSector = row.SectorName
			fmt.Fprintf(&b, "=== %s ===\n", row.SectorName)
		}
		fmt.Fprintf(&b, "\n%s (as of %s):\n", row.SubCategory, row.VersionDate)

		for _, ap := range rec.ActionPoints {
			fmt.Fprintf(&b, "- %s", ap.ActionName)
			var parts []string
			if ap.CurrentStatus != nil && *ap.CurrentStatus != "" {
				parts = append(parts, "status: "+*ap.CurrentStatus)
			}
			if ap.AchievementPercentage != nil {
				parts = append(parts, fmt.Sprintf("achievement: %.1f%%", *ap.AchievementPercentage))
			}
			if ap.Remarks != nil && *ap.Remarks != "" {
				parts = append(parts, "remarks: "+*ap.Remarks)
			}
			if len(parts) > 0 {
				b.WriteString(" (" + strings.Join(parts, "; ") + ")")
			}
			b.WriteString("\n")
		}
		for k, v := range rec.AdditionalDetails {
			fmt.Fprintf(&b, "- %s: %v\n", k, v)
		}
	}
	return b.String()
}
