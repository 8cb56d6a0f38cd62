// Package console renders a recovery run on a terminal and asks the operator
// for snapshot choices and the final confirmation.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"k8s.io/utils/clock"

	synology "github.com/scaleoutsean/synology-go"
	"github.com/scaleoutsean/synology-go/recovery"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	notAvail   = "N/A"
	rule       = "============================================================"
)

// ErrNoInput is returned when the input closes before a snapshot is chosen.
var ErrNoInput = errors.New("input closed before a snapshot was chosen")

type line struct {
	text string
	err  error
}

// Console implements recovery.Presenter.
type Console struct {
	in  io.Reader
	out io.Writer

	// Clock dates snapshot ages. Defaults to the real clock.
	Clock clock.PassiveClock

	colors bool
	local  map[string]bool

	once  sync.Once
	lines chan line
}

var _ recovery.Presenter = (*Console)(nil)

// New returns a console reading answers from in and writing to out. Colour
// follows the terminal detection of fatih/color.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:     in,
		out:    out,
		Clock:  clock.RealClock{},
		colors: !color.NoColor,
		local:  map[string]bool{},
	}
}

// SetColor forces colour output on or off.
func (c *Console) SetColor(on bool) {
	c.colors = on
}

// MarkLocal flags sessions coming from these addresses as this host's own.
func (c *Console) MarkLocal(addrs []string) {
	for _, a := range addrs {
		c.local[a] = true
	}
}

func (c *Console) paint(attrs ...color.Attribute) *color.Color {
	p := color.New(attrs...)
	if c.colors {
		p.EnableColor()
	} else {
		p.DisableColor()
	}
	return p
}

func (c *Console) println(p *color.Color, a ...interface{}) {
	fmt.Fprintln(c.out, p.Sprint(a...))
}

func (c *Console) Step(msg string) {
	fmt.Fprintln(c.out)
	c.println(c.paint(color.FgCyan), msg)
}

func (c *Console) Warn(msg string) {
	c.println(c.paint(color.FgYellow), msg)
}

func (c *Console) title(s string) {
	c.println(c.paint(color.Bold), s)
}

func (c *Console) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
}

func (c *Console) ShowTargets(targets []synology.Target) {
	if len(targets) == 0 {
		c.Warn("No iSCSI targets found")
		return
	}
	c.title("iSCSI Targets")
	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tIQN")
	for _, t := range targets {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.TargetID, orNA(t.Name), orNA(t.IQN))
	}
	tw.Flush()
}

func (c *Console) ShowLUNs(luns []synology.LUN) {
	if len(luns) == 0 {
		c.Warn("No iSCSI LUNs found")
		return
	}
	c.title("iSCSI LUNs")
	tw := c.table()
	fmt.Fprintln(tw, "NAME\tLOCATION\tSIZE")
	for _, l := range luns {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", orNA(l.Name), orNA(l.Location), humanize.IBytes(l.Size))
	}
	tw.Flush()
}

func (c *Console) ShowSessions(sessions []recovery.ActiveSession) {
	if len(sessions) == 0 {
		c.println(c.paint(color.FgGreen), "✓ No active iSCSI connections detected")
		return
	}
	c.println(c.paint(color.FgRed, color.Bold), "⚠ Active iSCSI connections detected!")
	tw := c.table()
	fmt.Fprintln(tw, "TARGET\tINITIATOR\tIP ADDRESS\t")
	for _, s := range sessions {
		mark := ""
		if c.local[s.RemoteAddress] {
			mark = "(this host)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.TargetName, orNA(s.Initiator), orNA(s.RemoteAddress), mark)
	}
	tw.Flush()
}

func (c *Console) ShowSnapshots(entry recovery.CatalogEntry) {
	if len(entry.Snapshots) == 0 {
		c.Warn("No snapshots found for " + entry.LUNName)
		return
	}
	shown := recovery.Candidates(entry)
	c.title(fmt.Sprintf("Snapshots for %s (showing %d most recent)", entry.LUNName, len(shown)))
	tw := c.table()
	fmt.Fprintln(tw, "#\tSNAPSHOT UUID\tCREATED\tAGE\tDESCRIPTION\tLOCKED")
	for i, s := range shown {
		locked := ""
		if s.Locked() {
			locked = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, orNA(s.UUID), c.created(s), c.age(s), s.Description, locked)
	}
	tw.Flush()
	if hidden := len(entry.Snapshots) - len(shown); hidden > 0 {
		c.println(c.paint(color.Faint), fmt.Sprintf("(%d older snapshots not shown)", hidden))
	}
}

func (c *Console) created(s recovery.Snapshot) string {
	if !s.HasTimestamp() {
		return notAvail
	}
	return s.Created.Local().Format(timeLayout)
}

func (c *Console) age(s recovery.Snapshot) string {
	if !s.HasTimestamp() {
		return ""
	}
	return humanize.RelTime(s.Created, c.Clock.Now(), "ago", "from now")
}

// SelectSnapshot shows the candidates and reads a choice. An empty answer
// picks the newest snapshot.
func (c *Console) SelectSnapshot(ctx context.Context, entry recovery.CatalogEntry, candidates []recovery.Snapshot) (int, error) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, rule)
	c.title("Processing: " + entry.LUNName)
	fmt.Fprintln(c.out, rule)
	c.ShowSnapshots(entry)

	c.println(c.paint(color.FgCyan), fmt.Sprintf("Select a snapshot to revert to (1-%d) or 0 to skip:", len(candidates)))
	for {
		fmt.Fprint(c.out, "Choice [1]: ")
		answer, err := c.readLine(ctx)
		if err == io.EOF {
			return 0, ErrNoInput
		}
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return 1, nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			c.Warn("Please enter a valid integer number")
			continue
		}
		return n, nil
	}
}

// Confirm asks a yes/no question. Anything but y or yes, including closed
// input, is a no.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N]: ", c.paint(color.Bold).Sprint(strings.TrimSpace(question)))
	answer, err := c.readLine(ctx)
	if err == io.EOF {
		fmt.Fprintln(c.out)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// readLine returns the next trimmed input line, or ctx's error if it ends
// first. The reader goroutine outlives a cancelled call; the process is
// exiting by then.
func (c *Console) readLine(ctx context.Context) (string, error) {
	c.once.Do(func() {
		c.lines = make(chan line)
		go c.scan()
	})
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		if l.err != nil && (l.err != io.EOF || l.text == "") {
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

func (c *Console) scan() {
	r := bufio.NewReader(c.in)
	for {
		s, err := r.ReadString('\n')
		c.lines <- line{text: s, err: err}
		if err != nil {
			close(c.lines)
			return
		}
	}
}

func (c *Console) ShowPlan(plan *recovery.Plan) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, rule)
	c.println(c.paint(color.FgCyan, color.Bold), "REVERSION PLAN")
	fmt.Fprintln(c.out, rule)
	label := c.paint(color.FgCyan)
	for _, item := range plan.Items() {
		s := item.Snapshot
		fmt.Fprintln(c.out)
		fmt.Fprintf(c.out, "%s %s\n", label.Sprint("LUN:"), item.LUNName)
		fmt.Fprintf(c.out, "%s %s\n", label.Sprint("Snapshot:"), orNA(s.UUID))
		fmt.Fprintf(c.out, "%s %s\n", label.Sprint("Created:"), c.created(s))
		fmt.Fprintf(c.out, "%s %s\n", label.Sprint("Description:"), orNA(s.Description))
	}
}

func (c *Console) ShowDryRun(plan *recovery.Plan) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, rule)
	c.println(c.paint(color.FgYellow, color.Bold), "DRY RUN COMPLETE")
	fmt.Fprintln(c.out, rule)
	for _, item := range plan.Items() {
		fmt.Fprintf(c.out, "  • would revert %s to snapshot %s (from %s)\n",
			item.LUNName, orNA(item.Snapshot.UUID), c.paint(color.FgGreen).Sprint(c.created(item.Snapshot)))
	}
	fmt.Fprintln(c.out)
	c.Warn("No changes were made (dry run mode)")
}

func (c *Console) RevertStarted(item recovery.PlanItem) {
	c.println(c.paint(color.FgCyan), fmt.Sprintf("Reverting %s to snapshot %s...", item.LUNName, item.Snapshot.UUID))
}

func (c *Console) RevertFinished(o recovery.ItemOutcome) {
	if o.Succeeded() {
		c.println(c.paint(color.FgGreen), fmt.Sprintf("✓ Successfully reverted %s (%s)", o.Item.LUNName, o.Duration.Round(time.Millisecond)))
		return
	}
	c.println(c.paint(color.FgRed), fmt.Sprintf("✗ Failed to revert %s: %v", o.Item.LUNName, o.Err))
}

func (c *Console) ShowReport(report *recovery.Report) {
	ok, failed := len(report.Succeeded()), len(report.Failed())
	fmt.Fprintln(c.out)
	if failed == 0 {
		c.println(c.paint(color.FgGreen, color.Bold), fmt.Sprintf("✓ Reversion process complete! %d LUN(s) reverted.", ok))
		return
	}
	c.println(c.paint(color.FgYellow, color.Bold), fmt.Sprintf("Reversion process complete: %d succeeded, %d failed.", ok, failed))
}

// ShowNotAttempted lists plan items an interrupted run never reached.
func (c *Console) ShowNotAttempted(items []recovery.PlanItem) {
	for _, item := range items {
		c.Warn("Not attempted: " + item.LUNName)
	}
}

func orNA(s string) string {
	if s == "" {
		return notAvail
	}
	return s
}
