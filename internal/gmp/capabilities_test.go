package gmp

import "testing"

func TestCapabilities(t *testing.T) {
	caps := NewCapabilities([]string{"get_tags", "CREATE_TAG", " delete_config ", "get_info"})

	if !caps.MayAccess(TypeTag) || !caps.MayCreate(TypeTag) || !caps.MayClone(TypeTag) {
		t.Fatal("expected tag access, create, and clone")
	}
	if caps.MayDelete(TypeTag) || caps.MayEdit(TypeTag) {
		t.Fatal("unexpected tag delete or edit")
	}
	if !caps.MayDelete(TypeScanConfig) {
		t.Fatal("scan configs use the config command noun")
	}
	if !caps.MayAccess(TypeOvalDef) || !caps.MayAccess(TypeDfnCertAdv) {
		t.Fatal("info types use get_info")
	}
	if caps.MayAccess(TypeReport) {
		t.Fatal("unexpected report access")
	}
}

func TestCapabilitiesEverything(t *testing.T) {
	caps := NewCapabilities([]string{"everything"})
	for _, entityType := range KnownTypes() {
		if !caps.MayCreate(entityType) || !caps.MayDelete(entityType) || !caps.MayAccess(entityType) {
			t.Fatalf("everything must grant %s", entityType)
		}
	}
	if (Capabilities{}).Has("get_tags") {
		t.Fatal("zero capabilities must deny")
	}
}

func TestEntityUserCan(t *testing.T) {
	e := Entity{UserCapabilities: []string{"modify_tag"}}
	if !e.UserCan("MODIFY_TAG") || e.UserCan("delete_tag") {
		t.Fatal("UserCan mismatch")
	}
	if !(Entity{UserCapabilities: []string{"everything"}}).UserCan("delete_tag") {
		t.Fatal("everything must grant delete_tag")
	}
}
