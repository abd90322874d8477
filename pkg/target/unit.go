package target

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// UnitState is the systemd view of a journald capture target.
type UnitState struct {
	Name        string
	LoadState   string
	ActiveState string
	SubState    string
}

// Loaded reports whether systemd knows the unit.
func (u UnitState) Loaded() bool {
	return u.LoadState == "loaded"
}

// unitLister is the slice of the systemd D-Bus client LookupUnit needs.
type unitLister interface {
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
}

// LookupUnit asks systemd over D-Bus for unit's state. journalctl accepts
// unknown units silently, so the daemon uses this to warn early.
func LookupUnit(ctx context.Context, unit string) (UnitState, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return UnitState{}, fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()
	return lookupUnit(ctx, conn, unit)
}

func lookupUnit(ctx context.Context, l unitLister, unit string) (UnitState, error) {
	units, err := l.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return UnitState{}, fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		return UnitState{Name: unit, LoadState: "not-found"}, nil
	}
	u := units[0]
	return UnitState{
		Name:        u.Name,
		LoadState:   u.LoadState,
		ActiveState: u.ActiveState,
		SubState:    u.SubState,
	}, nil
}
