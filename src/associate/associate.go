// Package associate partitions storage objects into assigned and orphan
// sets by matching their backing paths against instance disk references.
package associate

import (
	"log/slog"

	"volume-reconcile/src/inventory"
)

// Assignment pairs a storage object with the instance whose disk
// references it.
type Assignment struct {
	Object     inventory.StorageObject
	InstanceID string
}

// Partition is the result of resolving associations for one run. Order
// follows the provider's object enumeration in both sets.
type Partition struct {
	Assigned []Assignment
	Orphans  []inventory.StorageObject
}

// AssignedTo returns the owning instance for an object id, if any.
func (p Partition) AssignedTo(objectID string) (string, bool) {
	for _, a := range p.Assigned {
		if a.Object.ID == objectID {
			return a.InstanceID, true
		}
	}
	return "", false
}

// Resolve matches every storage object against the instance disk
// references using exact, case-sensitive backing-path equality. The first
// match in provider enumeration order wins; a second instance referencing
// the same backing path is logged as ambiguous but does not change the
// assignment. Instances with missing disk enumeration simply contribute no
// references, which can only under-assign (false orphan), never
// over-assign.
func Resolve(objects []inventory.StorageObject, instances []inventory.InstanceDisks, log *slog.Logger) Partition {
	if log == nil {
		log = slog.Default()
	}
	var p Partition
	for _, obj := range objects {
		owner, dup := findOwner(obj.BackingPath, instances)
		if owner == "" {
			p.Orphans = append(p.Orphans, obj)
			continue
		}
		if dup != "" {
			log.Warn("backing path referenced by multiple instances; keeping first match",
				slog.String("object", obj.ID),
				slog.String("assigned", owner),
				slog.String("also_referenced_by", dup))
		}
		p.Assigned = append(p.Assigned, Assignment{Object: obj, InstanceID: owner})
	}
	return p
}

func findOwner(backingPath string, instances []inventory.InstanceDisks) (owner, duplicate string) {
	for _, inst := range instances {
		for _, d := range inst.Disks {
			if d.BackingPath != backingPath {
				continue
			}
			if owner == "" {
				owner = inst.InstanceID
			} else if inst.InstanceID != owner {
				return owner, inst.InstanceID
			}
			break
		}
	}
	return owner, ""
}
