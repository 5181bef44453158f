package rules

import "github.com/alecthomas/participle/v2/lexer"

// File is a parsed design rule file
type File struct {
	Rules []*Rule `@@*`
}

// Rule is one assignment
// Example: via_clearance[different_net] = 12mil
type Rule struct {
	Pos lexer.Position

	Key       string `@Ident`
	Qualifier string `( LBracket @Ident RBracket )?`
	Value     *Value `Assign @@`
}

// Value is the right hand side of a rule
type Value struct {
	List     []string  `  LBracket ( @Ident ( Comma @Ident )* Comma? )? RBracket`
	Quantity *Quantity `| @@`
	Word     string    `| @Ident`
}

// Quantity is a number with an optional length unit
type Quantity struct {
	Number float64 `@Number`
	Unit   string  `@Unit?`
}
