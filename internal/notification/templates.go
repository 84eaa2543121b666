package notification

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// Kind names one message template.
type Kind string

const (
	KindConfirmRegistration  Kind = "confirm_registration"
	KindRegistrationReminder Kind = "registration_reminder"
	KindPasswordReset        Kind = "password_reset"
	KindPasswordOverride     Kind = "password_override"
	KindEmailChange          Kind = "email_change"
	KindAccountBlocked       Kind = "account_blocked"
	KindAccountUnblocked     Kind = "account_unblocked"
	KindRegistrationExpired  Kind = "registration_expired"
	KindAccessGranted        Kind = "access_granted"
	KindAccessRevoked        Kind = "access_revoked"
)

// templateData is the context available to every message template.
type templateData struct {
	Name  string
	Link  string
	Level string
}

type messageTemplate struct {
	subject map[repository.Language]string
	body    map[repository.Language]*template.Template
}

var bodySources = map[Kind]map[repository.Language]string{
	KindConfirmRegistration: {
		repository.LanguageEN: "Hello {{.Name}},\n\nThank you for registering. Confirm your account by visiting:\n{{.Link}}\n\nThe link is valid for a limited time.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nDziekujemy za rejestracje. Potwierdz swoje konto pod adresem:\n{{.Link}}\n\nLink jest wazny przez ograniczony czas.",
	},
	KindRegistrationReminder: {
		repository.LanguageEN: "Hello {{.Name}},\n\nYour account is still unconfirmed and will be removed soon. Confirm it by visiting:\n{{.Link}}",
		repository.LanguagePL: "Witaj {{.Name}},\n\nTwoje konto wciaz nie zostalo potwierdzone i wkrotce zostanie usuniete. Potwierdz je pod adresem:\n{{.Link}}",
	},
	KindPasswordReset: {
		repository.LanguageEN: "Hello {{.Name}},\n\nA password reset was requested for your account. Set a new password by visiting:\n{{.Link}}\n\nIf you did not request it, ignore this message.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nDla Twojego konta zazadano zresetowania hasla. Ustaw nowe haslo pod adresem:\n{{.Link}}\n\nJesli to nie Ty, zignoruj te wiadomosc.",
	},
	KindPasswordOverride: {
		repository.LanguageEN: "Hello {{.Name}},\n\nAn administrator changed your password. Your account is blocked until you set a new one by visiting:\n{{.Link}}",
		repository.LanguagePL: "Witaj {{.Name}},\n\nAdministrator zmienil Twoje haslo. Konto pozostanie zablokowane do czasu ustawienia nowego pod adresem:\n{{.Link}}",
	},
	KindEmailChange: {
		repository.LanguageEN: "Hello {{.Name}},\n\nConfirm your new email address by visiting:\n{{.Link}}\n\nIf you did not request the change, ignore this message.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nPotwierdz swoj nowy adres email pod adresem:\n{{.Link}}\n\nJesli to nie Ty, zignoruj te wiadomosc.",
	},
	KindAccountBlocked: {
		repository.LanguageEN: "Hello {{.Name}},\n\nYour account has been blocked. Contact an administrator for details.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nTwoje konto zostalo zablokowane. Skontaktuj sie z administratorem.",
	},
	KindAccountUnblocked: {
		repository.LanguageEN: "Hello {{.Name}},\n\nYour account has been unblocked. You can log in again.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nTwoje konto zostalo odblokowane. Mozesz ponownie sie zalogowac.",
	},
	KindRegistrationExpired: {
		repository.LanguageEN: "Hello {{.Name}},\n\nYour registration was not confirmed in time and the account has been removed. You may register again.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nTwoja rejestracja nie zostala potwierdzona na czas i konto zostalo usuniete. Mozesz zarejestrowac sie ponownie.",
	},
	KindAccessGranted: {
		repository.LanguageEN: "Hello {{.Name}},\n\nYou were granted the {{.Level}} access level.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nNadano Ci poziom dostepu {{.Level}}.",
	},
	KindAccessRevoked: {
		repository.LanguageEN: "Hello {{.Name}},\n\nYour {{.Level}} access level was revoked.",
		repository.LanguagePL: "Witaj {{.Name}},\n\nOdebrano Ci poziom dostepu {{.Level}}.",
	},
}

var subjects = map[Kind]map[repository.Language]string{
	KindConfirmRegistration: {
		repository.LanguageEN: "Confirm your registration",
		repository.LanguagePL: "Potwierdz rejestracje",
	},
	KindRegistrationReminder: {
		repository.LanguageEN: "Your account awaits confirmation",
		repository.LanguagePL: "Twoje konto czeka na potwierdzenie",
	},
	KindPasswordReset: {
		repository.LanguageEN: "Password reset",
		repository.LanguagePL: "Reset hasla",
	},
	KindPasswordOverride: {
		repository.LanguageEN: "Your password was changed",
		repository.LanguagePL: "Twoje haslo zostalo zmienione",
	},
	KindEmailChange: {
		repository.LanguageEN: "Confirm your new email address",
		repository.LanguagePL: "Potwierdz nowy adres email",
	},
	KindAccountBlocked: {
		repository.LanguageEN: "Your account was blocked",
		repository.LanguagePL: "Twoje konto zostalo zablokowane",
	},
	KindAccountUnblocked: {
		repository.LanguageEN: "Your account was unblocked",
		repository.LanguagePL: "Twoje konto zostalo odblokowane",
	},
	KindRegistrationExpired: {
		repository.LanguageEN: "Your registration expired",
		repository.LanguagePL: "Twoja rejestracja wygasla",
	},
	KindAccessGranted: {
		repository.LanguageEN: "Access level granted",
		repository.LanguagePL: "Nadano poziom dostepu",
	},
	KindAccessRevoked: {
		repository.LanguageEN: "Access level revoked",
		repository.LanguagePL: "Odebrano poziom dostepu",
	},
}

var templates = buildTemplates()

func buildTemplates() map[Kind]messageTemplate {
	out := make(map[Kind]messageTemplate, len(bodySources))
	for kind, perLang := range bodySources {
		mt := messageTemplate{
			subject: subjects[kind],
			body:    make(map[repository.Language]*template.Template, len(perLang)),
		}
		for lang, src := range perLang {
			mt.body[lang] = template.Must(template.New(string(kind) + "_" + string(lang)).Parse(src))
		}
		out[kind] = mt
	}
	return out
}

var sanitizer = bluemonday.StrictPolicy()

// render produces the subject and body for one message. Recipient-supplied
// values are stripped of any markup before interpolation.
func render(kind Kind, lang repository.Language, data templateData) (subject, body string, err error) {
	mt, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown template kind %q", kind)
	}
	if _, ok := mt.body[lang]; !ok {
		lang = repository.LanguagePL
	}

	data.Name = sanitizer.Sanitize(data.Name)
	data.Level = sanitizer.Sanitize(data.Level)

	var sb strings.Builder
	if err := mt.body[lang].Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("rendering %s: %w", kind, err)
	}
	return mt.subject[lang], sb.String(), nil
}
