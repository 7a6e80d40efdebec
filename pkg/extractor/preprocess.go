package extractor

import (
	"fmt"

	"github.com/kataras/flinto-export/pkg/document"
	"github.com/kataras/flinto-export/pkg/imager"
)

// chain is a clipping chain: consecutive visible siblings clipped to the
// first unclipped node below them. The base is the last member.
type chain []*document.Node

func (c chain) base() *document.Node { return c[len(c)-1] }

// Preprocess prepares a working document for traversal. Adjustment layers
// that are not part of a clipping chain are hidden, and every clipping chain
// is merged into a single raster layer at its base's position. Invisible
// subtrees are left untouched. Groups are processed before their parent.
func Preprocess(doc *document.Document) error {
	return preprocess(doc, doc.Layers)
}

func preprocess(doc *document.Document, nodes []*document.Node) error {
	for _, n := range nodes {
		if n.Visible && n.Type == document.TypeGroup {
			if err := preprocess(doc, n.Children); err != nil {
				return fmt.Errorf("group %q: %w", n.Name, err)
			}
		}
	}

	chains := collectChains(nodes)

	inChain := make(map[*document.Node]bool)
	for _, c := range chains {
		for _, n := range c {
			inChain[n] = true
		}
	}
	for _, n := range nodes {
		if n.Visible && n.Kind.IsAdjustment() && !inChain[n] {
			n.Visible = false
		}
	}

	for _, c := range chains {
		if err := mergeChain(doc, c); err != nil {
			return err
		}
	}
	return nil
}

// collectChains scans visible siblings top to bottom. A run of clipped nodes
// is closed by the next unclipped node, its base. A run that reaches the end
// of the container has no base and is dropped.
func collectChains(nodes []*document.Node) []chain {
	var (
		chains []chain
		open   chain
	)
	for _, n := range nodes {
		if !n.Visible {
			continue
		}
		if n.Clipped {
			open = append(open, n)
			continue
		}
		if len(open) > 0 {
			chains = append(chains, append(open, n))
			open = nil
		}
	}
	return chains
}

// mergeChain bakes the base into plain pixels, then merges the members into
// it from the bottom up. The base keeps its identity, name and opacity.
func mergeChain(doc *document.Document, c chain) error {
	base := c.base()

	unlock(base)
	if err := imager.Flatten(doc, base); err != nil {
		return fmt.Errorf("clipping base %q: %w", base.Name, err)
	}
	// A rasterized text base is no longer exempt from unlocking.
	unlock(base)

	for i := len(c) - 2; i >= 0; i-- {
		m := c[i]
		unlock(m)
		if m.Type == document.TypeGroup {
			if err := imager.Flatten(doc, m); err != nil {
				return fmt.Errorf("clipped group %q: %w", m.Name, err)
			}
		}
		if err := doc.Merge(m, base); err != nil {
			return fmt.Errorf("clipping chain %q: %w", base.Name, err)
		}
	}
	return nil
}

// unlock clears every lock that would block baking or merging. The pixel
// locks of a live text layer cannot be lifted and stay as they are.
func unlock(n *document.Node) {
	n.Locks.Background = false
	n.Locks.Position = false
	if n.Type != document.TypeText {
		n.Locks.Pixels = false
		n.Locks.TransparentPixels = false
	}
	n.Locks.All = false
}
