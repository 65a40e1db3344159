// symbols/symbol_table.go - Main symbol table entry point
//
// The package is split into focused files:
// - symbol_table_core.go: Symbol, kinds, flags and names
// - symbol_table_scope.go: ordered member scopes
// - symbol_table_completion.go: on-demand info completion with cycle detection
// - symbol_table_operations.go: Table, symbol creation and entering
// - symbol_table_init.go: the lang package and the Predef module
// - symbol_table_resolution.go: denotations, member lookup and the typesystem.Resolver view

package symbols
