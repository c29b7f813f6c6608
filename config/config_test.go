package config

import (
	"reflect"
	"testing"
)

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("TL_TEST_KEY", "   ")
	if got := Get("TL_TEST_KEY", "def"); got != "def" {
		t.Errorf("Expected def, got %q", got)
	}
	t.Setenv("TL_TEST_KEY", " value ")
	if got := Get("TL_TEST_KEY", "def"); got != "value" {
		t.Errorf("Expected value, got %q", got)
	}
}

func TestGetIntAndBool(t *testing.T) {
	t.Setenv("TL_TEST_INT", "42")
	if got := GetInt("TL_TEST_INT", 1); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	t.Setenv("TL_TEST_INT", "forty-two")
	if got := GetInt("TL_TEST_INT", 1); got != 1 {
		t.Errorf("Expected fallback 1, got %d", got)
	}
	t.Setenv("TL_TEST_BOOL", "true")
	if !GetBool("TL_TEST_BOOL", false) {
		t.Error("Expected true")
	}
	t.Setenv("TL_TEST_BOOL", "nope")
	if GetBool("TL_TEST_BOOL", false) {
		t.Error("Expected fallback false")
	}
}

func TestGetList(t *testing.T) {
	t.Setenv("TL_TEST_LIST", "a, b,,c ")
	got := GetList("TL_TEST_LIST", "")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := GetList("TL_TEST_UNSET_LIST", "x"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Expected default list, got %v", got)
	}
}
