package payroll

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fingerprint is a stable digest of everything Compute reads from an Input
// except the holiday calendar. Caches key results on it so any edit to a
// shift or to the config invalidates the entry. Shift order does not matter.
func Fingerprint(in Input) string {
	var sb strings.Builder

	c := in.Config
	fmt.Fprintf(&sb, "subject=%s\nperiod=%s\n", in.SubjectID, in.Period.Key())
	fmt.Fprintf(&sb, "wage=%s/%t\n", c.HourlyWage.Decimal.String(), c.HourlyWage.Valid)
	fmt.Fprintf(&sb, "weekly=%t\n", c.WeeklyAllowanceEnabled)
	fmt.Fprintf(&sb, "night=%t/%s\n", c.NightAllowanceEnabled, c.NightRatePercent.String())
	fmt.Fprintf(&sb, "overtime=%t/%s\n", c.OvertimeAllowanceEnabled, c.OvertimeRatePercent.String())
	fmt.Fprintf(&sb, "holiday=%t/%s\n", c.HolidayAllowanceEnabled, c.HolidayRatePercent.String())
	fmt.Fprintf(&sb, "tax=%s/%s\n", c.TaxMode, c.TaxRatePercent.String())
	fmt.Fprintf(&sb, "rest=%d week=%d policy=%s\n", c.RestDay, c.WeekStart, c.WeeklyWagePolicy)

	lines := make([]string, 0, len(in.Shifts))
	for _, s := range in.Shifts {
		lines = append(lines, fmt.Sprintf("shift=%s|%s|%s|%s|%s/%t|%s",
			s.ID, s.SubjectID,
			s.Start.Format(time.RFC3339Nano), s.End.Format(time.RFC3339Nano),
			s.HourlyWage.Decimal.String(), s.HourlyWage.Valid,
			s.ParseError))
	}
	sort.Strings(lines)
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
