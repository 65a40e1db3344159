package typesystem

import (
	"fmt"
	"math"
	"strconv"

	"github.com/funvibe/typer/internal/config"
)

// ConstTag is the kind of a literal constant.
type ConstTag int

const (
	UnitTag ConstTag = iota
	BooleanTag
	ByteTag
	ShortTag
	CharTag
	IntTag
	LongTag
	FloatTag
	DoubleTag
	StringTag
	NullTag
)

var tagNames = map[ConstTag]string{
	UnitTag:    config.UnitTypeName,
	BooleanTag: config.BooleanTypeName,
	ByteTag:    config.ByteTypeName,
	ShortTag:   config.ShortTypeName,
	CharTag:    config.CharTypeName,
	IntTag:     config.IntTypeName,
	LongTag:    config.LongTypeName,
	FloatTag:   config.FloatTypeName,
	DoubleTag:  config.DoubleTypeName,
	StringTag:  config.StringTypeName,
	NullTag:    config.NullTypeName,
}

// Constant is a literal value. Integral values are stored as int64,
// floating ones as float64, chars as rune.
type Constant struct {
	Tag   ConstTag
	Value interface{}
}

func IntConst(v int64) Constant { return Constant{Tag: IntTag, Value: v} }
func LongConst(v int64) Constant { return Constant{Tag: LongTag, Value: v} }
func DoubleConst(v float64) Constant { return Constant{Tag: DoubleTag, Value: v} }
func StringConst(v string) Constant { return Constant{Tag: StringTag, Value: v} }
func BooleanConst(v bool) Constant { return Constant{Tag: BooleanTag, Value: v} }
func CharConst(v rune) Constant { return Constant{Tag: CharTag, Value: v} }
func UnitConst() Constant { return Constant{Tag: UnitTag} }
func NullConst() Constant { return Constant{Tag: NullTag} }

// TypeName is the builtin class name of the constant's type.
func (c Constant) TypeName() string {
	return tagNames[c.Tag]
}

func (c Constant) IsNumeric() bool {
	switch c.Tag {
	case ByteTag, ShortTag, CharTag, IntTag, LongTag, FloatTag, DoubleTag:
		return true
	}
	return false
}

func (c Constant) String() string {
	switch c.Tag {
	case UnitTag:
		return "()"
	case NullTag:
		return "null"
	case StringTag:
		return strconv.Quote(c.Value.(string))
	case CharTag:
		return strconv.QuoteRune(c.Value.(rune))
	case LongTag:
		return fmt.Sprintf("%dL", c.Value)
	case FloatTag:
		return fmt.Sprintf("%vf", c.Value)
	default:
		return fmt.Sprintf("%v", c.Value)
	}
}

func (c Constant) asInt() (int64, bool) {
	switch v := c.Value.(type) {
	case int64:
		return v, true
	case rune:
		return int64(v), true
	}
	return 0, false
}

func (c Constant) asFloat() float64 {
	switch v := c.Value.(type) {
	case int64:
		return float64(v)
	case rune:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// ConvertTo converts a numeric constant to the builtin numeric type named target.
// Widening conversions always succeed; narrowing of integral constants to
// Byte, Short or Char succeeds only when the value fits.
func (c Constant) ConvertTo(target string) (Constant, bool) {
	if !c.IsNumeric() {
		return c, false
	}
	if c.TypeName() == target {
		return c, true
	}
	widens := false
	for _, w := range config.NumericWidening[c.TypeName()] {
		if w == target {
			widens = true
			break
		}
	}
	iv, integral := c.asInt()
	switch target {
	case config.LongTypeName:
		if widens && integral {
			return Constant{Tag: LongTag, Value: iv}, true
		}
	case config.FloatTypeName:
		if widens {
			return Constant{Tag: FloatTag, Value: c.asFloat()}, true
		}
	case config.DoubleTypeName:
		if widens {
			return Constant{Tag: DoubleTag, Value: c.asFloat()}, true
		}
	case config.IntTypeName:
		if integral && widens {
			return Constant{Tag: IntTag, Value: iv}, true
		}
	case config.ShortTypeName:
		if integral && c.Tag == IntTag && iv >= math.MinInt16 && iv <= math.MaxInt16 {
			return Constant{Tag: ShortTag, Value: iv}, true
		}
	case config.ByteTypeName:
		if integral && c.Tag == IntTag && iv >= math.MinInt8 && iv <= math.MaxInt8 {
			return Constant{Tag: ByteTag, Value: iv}, true
		}
	case config.CharTypeName:
		if integral && c.Tag == IntTag && iv >= 0 && iv <= math.MaxUint16 {
			return Constant{Tag: CharTag, Value: rune(iv)}, true
		}
	}
	return c, false
}
