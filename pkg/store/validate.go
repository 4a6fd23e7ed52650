package store

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
)

// custom validation tags & texts
const (
	blockTypeTag  = "blocktype"
	blockTypeText = "{0} must be one of text, link, embed, file, checklist"

	statusTag  = "deliverable_status"
	statusText = "{0} must be one of submitted, reviewed, needs_changes, approved"

	roleTag  = "member_role"
	roleText = "{0} must be one of member, viewer, editor"

	slugTag  = "slug"
	slugText = "{0} may only contain lowercase letters, digits and single hyphens"

	requiredText        = "this field is required"
	requiredWithoutText = "{0} is required unless {1} is set"
	excludedWithText    = "{0} must not be set together with {1}"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	translator    ut.Translator
)

func initValidator() {
	validate = validator.New()
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// typed ids validate as their string form; the zero id is empty
	validate.RegisterCustomTypeFunc(idValue,
		models.BlockID{}, models.PageID{}, models.PortalID{}, models.PortalMemberID{},
		models.ClientID{}, models.CoachID{}, models.DeliverableID{}, models.ResourceID{},
		models.NotificationID{},
	)

	_ = validate.RegisterValidation(blockTypeTag, func(fl validator.FieldLevel) bool {
		return models.BlockType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return models.DeliverableStatus(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		switch models.MemberRole(fl.Field().String()) {
		case models.RoleMember, models.RoleViewer, models.RoleEditor:
			return true
		}
		return false
	})
	_ = validate.RegisterValidation(slugTag, func(fl validator.FieldLevel) bool {
		return models.IsSlug(fl.Field().String())
	})

	registerTranslation(blockTypeTag, blockTypeText)
	registerTranslation(statusTag, statusText)
	registerTranslation(roleTag, roleText)
	registerTranslation(slugTag, slugText)
	registerTranslation("required", requiredText)
	registerTranslation("required_without", requiredWithoutText)
	registerTranslation("excluded_with", excludedWithText)
}

type stringer interface {
	String() string
	IsZero() bool
}

func idValue(field reflect.Value) any {
	id, ok := field.Interface().(stringer)
	if !ok || id.IsZero() {
		return ""
	}
	return id.String()
}

// registerTranslation registers text for tag, overriding any default. {0} is the
// field name and {1} the tag parameter.
func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), jsonName(fe.Param()))
			return s
		},
	)
}

// jsonName turns a Go field name used as a tag parameter into its json key.
func jsonName(goName string) string {
	var b strings.Builder
	for i, r := range goName {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return strings.ReplaceAll(b.String(), "_i_d", "_id")
}

// Validate checks rec against its validate tags and returns a ValidationError
// naming every failing field.
func Validate(rec any) error {
	validatorOnce.Do(initValidator)

	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError(err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Translate(translator)})
	}
	return NewValidationError(err, fields...)
}
