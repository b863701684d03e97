package features

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/clientscore/internal/model"
)

// Fixed feature keys seeded from the structured fields, in emission order
const (
	KeyAge            = "age"
	KeyGender         = "gender"
	KeyAdminArea      = "adminarea"
	KeyIncomeValue    = "incomeValue"
	KeyIncomeCategory = "incomeValueCategory"
	KeyCitySmartName  = "city_smart_name"
)

// StructuredKeys lists the keys every feature set carries
var StructuredKeys = []string{
	KeyAge,
	KeyGender,
	KeyAdminArea,
	KeyIncomeValue,
	KeyIncomeCategory,
	KeyCitySmartName,
}

// DecodeError reports a dynamic attribute blob that could not be materialized
type DecodeError struct {
	ClientID int64
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode attributes of client %d: %v", e.ClientID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Assembler flattens client records into feature sets
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler creates an assembler. A nil logger discards logs.
func NewAssembler(logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{logger: logger}
}

// Build seeds the structured keys (null when unset) and then overlays the
// dynamic attributes, which win on key collision. When the attribute blob
// cannot be decoded the structured-only set is returned with a *DecodeError.
func (a *Assembler) Build(record *model.ClientRecord) (*model.FeatureSet, error) {
	fs := structured(record)

	extra, err := model.DecodeAttributes(record.Features)
	if err != nil {
		return fs, &DecodeError{ClientID: record.ID, Err: err}
	}
	fs.Merge(extra)
	return fs, nil
}

// Assemble is Build with decode errors logged and treated as "no extra features"
func (a *Assembler) Assemble(record *model.ClientRecord) *model.FeatureSet {
	fs, err := a.Build(record)
	if err != nil {
		a.logger.Warn("Ignoring undecodable dynamic attributes", zap.Int64("id", record.ID), zap.Error(err))
	}
	return fs
}

// Attributes materializes the record's dynamic attributes with the same
// decode policy as Assemble: an undecodable blob yields an empty mapping.
func (a *Assembler) Attributes(record *model.ClientRecord) *model.Attributes {
	extra, err := model.DecodeAttributes(record.Features)
	if err != nil {
		a.logger.Warn("Ignoring undecodable dynamic attributes", zap.Int64("id", record.ID), zap.Error(err))
		return model.NewAttributes(0)
	}
	return extra
}

func structured(r *model.ClientRecord) *model.FeatureSet {
	fs := model.NewAttributes(len(StructuredKeys))

	age := model.Null()
	if r.Age != nil {
		age = model.Int(int64(*r.Age))
	}
	income := model.Null()
	if r.IncomeValue.Valid {
		income = model.Float(r.IncomeValue.Decimal.InexactFloat64())
	}

	fs.Set(KeyAge, age)
	fs.Set(KeyGender, optionalString(r.Gender))
	fs.Set(KeyAdminArea, optionalString(r.AdminArea))
	fs.Set(KeyIncomeValue, income)
	fs.Set(KeyIncomeCategory, optionalString(r.IncomeCategory))
	fs.Set(KeyCitySmartName, optionalString(r.CitySmartName))
	return fs
}

func optionalString(s *string) model.Value {
	if s == nil {
		return model.Null()
	}
	return model.String(*s)
}
