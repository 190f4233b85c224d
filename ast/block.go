package ast

import "github.com/rulebook/rbk/storage"

// Block groups a fixed sequence of child directives that activate and
// deactivate together, in order, with no condition of its own.
type Block struct {
	Base
	children []Directive
}

// NewBlock returns an inactive Block over children, activated/deactivated
// in the order given.
func NewBlock(ctx *storage.Context, children ...Directive) *Block {
	blk := &Block{children: children}
	blk.Base = newBase(ctx, blk.onSetActive)
	return blk
}

func (blk *Block) onSetActive(active bool) error {
	for _, c := range blk.children {
		if err := c.SetActive(active); err != nil {
			return err
		}
	}
	return nil
}
