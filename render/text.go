package render

import (
	"fmt"
	"strings"

	"ticketbot/models"
)

// DeficiencyText formats a deficiency table into a message artifact. An empty
// table means nobody missed the quota and produces the "Perfect!" sentinel.
// Line order follows the table's order.
func DeficiencyText(table models.DeficiencyTable, guildName string, lookbackDays int) models.TextArtifact {
	title := fmt.Sprintf("%s Missed Tickets Report", guildName)

	if len(table) == 0 {
		return models.TextArtifact{Title: title, Description: "Perfect!"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%d** tickets missed in the last **%d** days\n", table.TotalMissed(), lookbackDays)
	b.WriteString("Members that missed tickets:")
	b.WriteString("```\n")
	for _, entry := range table {
		fmt.Fprintf(&b, "%4d : %s\n", entry.TicketsMissed, entry.Player)
	}
	b.WriteString("```")

	return models.TextArtifact{Title: title, Description: b.String()}
}
