package config

// FixtureFileExt is the extension of YAML tree fixtures accepted by the CLI.
const FixtureFileExt = ".tree.yaml"

// FixtureFileExtensions are all recognized fixture extensions.
var FixtureFileExtensions = []string{".tree.yaml", ".tree.yml"}

// IsTestMode indicates if the program is running in test mode.
// Type variables print as "?" in test mode so expected strings stay stable.
var IsTestMode = false

// TestModeEnv switches the CLI into test mode when set to "1".
const TestModeEnv = "TYPER_TEST_MODE"

// Builtin package and module names
const (
	LangPackage  = "lang"
	PredefModule = "Predef"
	RootPackage  = "<root>"
)

// Builtin type names (all live in the lang package)
const (
	AnyTypeName     = "Any"
	AnyValTypeName  = "AnyVal"
	AnyRefTypeName  = "AnyRef"
	NothingTypeName = "Nothing"
	NullTypeName    = "Null"
	UnitTypeName    = "Unit"
	BooleanTypeName = "Boolean"
	ByteTypeName    = "Byte"
	ShortTypeName   = "Short"
	CharTypeName    = "Char"
	IntTypeName     = "Int"
	LongTypeName    = "Long"
	FloatTypeName   = "Float"
	DoubleTypeName  = "Double"
	StringTypeName  = "String"
)

// Special member names
const (
	ApplyMethodName = "apply"
	ConstructorName = "<init>"
	SetterSuffix    = "_="
	WildcardName    = "_"
	UnaryPrefix     = "unary_"
	EtaParamPrefix  = "x$"
)

// NumericWidening lists, for each numeric type, the types a constant of that
// type may be converted to without loss.
var NumericWidening = map[string][]string{
	ByteTypeName:  {ShortTypeName, IntTypeName, LongTypeName, FloatTypeName, DoubleTypeName},
	ShortTypeName: {IntTypeName, LongTypeName, FloatTypeName, DoubleTypeName},
	CharTypeName:  {IntTypeName, LongTypeName, FloatTypeName, DoubleTypeName},
	IntTypeName:   {LongTypeName, FloatTypeName, DoubleTypeName},
	LongTypeName:  {FloatTypeName, DoubleTypeName},
	FloatTypeName: {DoubleTypeName},
}

// QualifiedBuiltin returns the full name of a builtin type, e.g. "lang.Int".
func QualifiedBuiltin(name string) string {
	return LangPackage + "." + name
}
