package serviceconfig

import (
	"go.uber.org/zap"
)

const (
	// sandboxControlEnvironment is the deprecated control hostname some
	// older configurations still reference; it is rewritten to the
	// production equivalent during validation.
	sandboxControlEnvironment    = "endpoints-servicecontrol.sandbox.googleapis.com"
	productionControlEnvironment = "servicecontrol.googleapis.com"
)

// ValidateAndNormalize checks the document's identity fields against the
// caller's expectations and applies the sandbox-environment rewrite. The
// checks run in a fixed order and each failure is a distinct CodeValidation
// error. The document is mutated in place and returned ready for use;
// fields outside the inspected ones are never touched.
func ValidateAndNormalize(doc Document, expectedName, expectedVersion string, logger *zap.Logger) (Document, error) {
	checks := []func(Document) error{
		checkNamePresent,
		checkNameMatches(expectedName),
		checkVersionPresent,
		checkVersionMatches(expectedVersion),
		checkControlPresent,
		checkEnvironmentPresent,
	}
	for _, check := range checks {
		if err := check(doc); err != nil {
			return nil, err
		}
	}

	normalizeControlEnvironment(doc, logger)
	return doc, nil
}

func checkNamePresent(doc Document) error {
	if stringField(doc, "name") == "" {
		return Errorf(CodeValidation, "No service name in the service config")
	}
	return nil
}

func checkNameMatches(expectedName string) func(Document) error {
	return func(doc Document) error {
		if name := stringField(doc, "name"); name != expectedName {
			return Errorf(CodeValidation, "Unexpected service name in service config: %s", name)
		}
		return nil
	}
}

func checkVersionPresent(doc Document) error {
	if stringField(doc, "id") == "" {
		return Errorf(CodeValidation, "No service config ID in the service config")
	}
	return nil
}

func checkVersionMatches(expectedVersion string) func(Document) error {
	return func(doc Document) error {
		if id := stringField(doc, "id"); id != expectedVersion {
			return Errorf(CodeValidation, "Unexpected service config ID in service config: %s", id)
		}
		return nil
	}
}

func checkControlPresent(doc Document) error {
	if len(controlSection(doc)) == 0 {
		return Errorf(CodeValidation, "No control section in the service config")
	}
	return nil
}

func checkEnvironmentPresent(doc Document) error {
	if stringField(controlSection(doc), "environment") == "" {
		return Errorf(CodeValidation, "Missing control environment")
	}
	return nil
}

// normalizeControlEnvironment rewrites the retired sandbox control hostname
// to its production replacement. Any other environment value passes through
// unchanged, so running validation twice is a no-op.
func normalizeControlEnvironment(doc Document, logger *zap.Logger) {
	control := controlSection(doc)
	if stringField(control, "environment") != sandboxControlEnvironment {
		return
	}
	logger.Warn("replacing sandbox control environment in the service config",
		zap.String("environment", productionControlEnvironment))
	control["environment"] = productionControlEnvironment
}

func stringField(section map[string]any, key string) string {
	value, _ := section[key].(string)
	return value
}

func controlSection(doc Document) map[string]any {
	control, _ := doc["control"].(map[string]any)
	return control
}
