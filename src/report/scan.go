// Package report reads and writes the run's text artifacts: the
// intermediate scan record produced by the discovery pass and the
// append-only audit trail of per-object outcomes.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"volume-reconcile/src/inventory"
)

// scanSeparator terminates each object block in the scan record.
const scanSeparator = "---"

// scanSentinel is written when the discovery pass found nothing.
const scanSentinel = "No storage objects found."

// WriteScan renders one labeled block per storage object, in order,
// followed by a separator line, or the sentinel when there are none.
func WriteScan(w io.Writer, objects []inventory.StorageObject) error {
	if len(objects) == 0 {
		_, err := fmt.Fprintln(w, scanSentinel)
		return err
	}
	for _, o := range objects {
		if _, err := fmt.Fprintf(w,
			"Name: %s\nDatastore: %s\nCapacityGB: %d\nUID: %s\nID: %s\nFilename: %s\n%s\n",
			o.Name, o.Datastore, o.CapacityGB, o.UID, o.ID, o.BackingPath, scanSeparator); err != nil {
			return err
		}
	}
	return nil
}

// ParseScan reads scan-record blocks back into storage objects. Optional
// fields may be absent; an object needs an ID, or a Datastore and Name to
// derive one. Blank lines, unknown labels and the trailing sentinel are
// tolerated.
func ParseScan(r io.Reader) ([]inventory.StorageObject, error) {
	var out []inventory.StorageObject
	cur := map[string]string{}

	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		obj, err := objectFromFields(cur)
		if err != nil {
			return err
		}
		out = append(out, obj)
		cur = map[string]string{}
		return nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line == scanSentinel:
			continue
		case line == scanSeparator:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			label, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			cur[strings.TrimSpace(label)] = strings.TrimSpace(value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// Final block without a trailing separator.
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func objectFromFields(f map[string]string) (inventory.StorageObject, error) {
	obj := inventory.StorageObject{
		Name:        f["Name"],
		Datastore:   f["Datastore"],
		UID:         f["UID"],
		ID:          f["ID"],
		BackingPath: f["Filename"],
	}
	if f["CapacityGB"] != "" {
		n, err := strconv.ParseInt(f["CapacityGB"], 10, 64)
		if err != nil {
			return obj, fmt.Errorf("scan record: bad CapacityGB %q", f["CapacityGB"])
		}
		obj.CapacityGB = n
	}
	if obj.ID == "" {
		if obj.Datastore == "" || obj.Name == "" {
			return obj, fmt.Errorf("scan record block has no ID and no Datastore+Name to derive one: %v", f)
		}
		obj.ID = obj.Datastore + ":" + obj.Name
	}
	if obj.Datastore == "" {
		if ref, _, ok := strings.Cut(obj.ID, ":"); ok {
			obj.Datastore = ref
		}
	}
	return obj, nil
}
