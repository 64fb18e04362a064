package catalog

import (
	"errors"
	"fmt"

	"github.com/gosimple/slug"

	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

// ValidationOptions controls the checks run before a catalog is swapped in.
// The zero value checks structure only.
type ValidationOptions struct {
	// MinItems rejects catalogs with fewer items. 0 disables the check.
	MinItems int

	// RequireHeader fails when no item carries the section-header tag.
	RequireHeader bool
}

func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{MinItems: 1}
}

// Validate returns every problem found, joined.
func Validate(items []Item, opts ValidationOptions) error {
	var errs []error
	if opts.MinItems > 0 && len(items) < opts.MinItems {
		errs = append(errs, fmt.Errorf("catalog has %d items, minimum is %d", len(items), opts.MinItems))
	}

	ids := make(map[string]int, len(items))
	slugs := make(map[string]int, len(items))
	for i, it := range items {
		switch {
		case it.ID == "":
			errs = append(errs, fmt.Errorf("item %d: id is required", i))
		case ids[it.ID] > 0:
			errs = append(errs, fmt.Errorf("item %d: duplicate id %q (first at %d)", i, it.ID, ids[it.ID]-1))
		default:
			ids[it.ID] = i + 1
		}
		if !it.Kind.Known() {
			errs = append(errs, fmt.Errorf("item %d (%s): unknown kind %q", i, it.ID, it.Kind))
		}
		if it.Slug == "" {
			continue
		}
		if !slug.IsSlug(it.Slug) {
			errs = append(errs, fmt.Errorf("item %d (%s): slug %q is not a valid slug, try %q", i, it.ID, it.Slug, slug.Make(it.Slug)))
		}
		if first, dup := slugs[it.Slug]; dup {
			errs = append(errs, fmt.Errorf("item %d (%s): duplicate slug %q (first at %d)", i, it.ID, it.Slug, first))
		} else {
			slugs[it.Slug] = i
		}
	}

	if opts.RequireHeader {
		if _, ok := HeaderItem(items); !ok {
			errs = append(errs, fmt.Errorf("no item tagged %q", HeaderTag))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return xerrors.Wrap(err, "validate catalog")
	}
	return nil
}
