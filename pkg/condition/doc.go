// Package condition parses and evaluates the boolean expressions attached to dialogue nodes.
//
// Grammar:
//
//	expr       = and ( ("OR" | "||") and )*
//	and        = unary ( ("AND" | "&&") unary )*
//	unary      = ("NOT" | "!") unary | "(" expr ")" | comparison
//	comparison = operand [ op operand ]
//	op         = "==" | "!=" | ">" | ">=" | "<" | "<=" | "contains" | "matches"
//	operand    = path | string | number | true | false
//
// A bare operand is tested for truthiness, so `met_innkeeper` and `NOT quest.done` are valid.
// Paths are dotted ("inventory.keys") and resolved against a domain.GameState.
package condition
