package ecc

import (
	"crypto/elliptic"
	"testing"
)

func TestFindByOidMatchesFindByName(t *testing.T) {
	for i := range Curves {
		ci := &Curves[i]
		if got := FindByOid(ci.Oid); got != ci {
			t.Errorf("FindByOid(%s) = %v", ci.Name, got)
		}
		if got := FindByName(ci.Name); got != ci {
			t.Errorf("FindByName(%s) = %v", ci.Name, got)
		}
	}
}

func TestFindByCurve(t *testing.T) {
	if ci := FindByCurve(elliptic.P256()); ci == nil || ci.Name != "P256" {
		t.Errorf("FindByCurve(P256) = %v", ci)
	}
	if ci := FindByCurve(elliptic.P521()); ci == nil || ci.Name != "P521" {
		t.Errorf("FindByCurve(P521) = %v", ci)
	}
}

func TestKDFPairings(t *testing.T) {
	// Every curve carries both a preferred KDF hash and a KDF cipher.
	for i := range Curves {
		ci := &Curves[i]
		if ci.KDFHash == nil || ci.KDFCipher == nil {
			t.Errorf("%s missing KDF pairing", ci.Name)
		}
	}
}

func TestEd25519IsEdDSAOnly(t *testing.T) {
	ci := FindByName("Ed25519")
	if ci == nil || ci.SigAlgorithm != EdDSA {
		t.Errorf("Ed25519 registry entry wrong: %v", ci)
	}
}
