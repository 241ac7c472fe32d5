package packages

import "testing"

func TestParseState(t *testing.T) {
	for _, valid := range []string{"present", "absent", "uploaded", "uninstalled"} {
		if _, err := ParseState(valid); err != nil {
			t.Errorf("ParseState(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseState("installed"); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestDecodeFlatListing(t *testing.T) {
	body := []byte(`{
		"results": [
			{"name": "acs-aem-commons-content", "group": "adobe/consulting",
			 "downloadName": "acs-aem-commons-content-1.6.2.zip",
			 "version": "1.6.2", "lastUnpacked": "2016-01-12T11:30:00.000+11:00"},
			{"name": "my-content", "group": "my_packages",
			 "downloadName": "my-content-1.0.0.zip"}
		],
		"total": 2
	}`)

	listing, err := decodeListing(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(listing.Results) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listing.Results))
	}

	lookup := listing.Find("acs-aem-commons-content-1.6.2.zip")
	if !lookup.Found {
		t.Fatal("expected entry by download name")
	}
	if !lookup.Entry.Installed() {
		t.Error("entry with lastUnpacked must report installed")
	}
	if lookup.Entry.Group != "adobe/consulting" {
		t.Errorf("unexpected group %q", lookup.Entry.Group)
	}

	lookup = listing.Find("my-content")
	if !lookup.Found {
		t.Fatal("expected entry by name")
	}
	if lookup.Entry.Installed() {
		t.Error("entry without lastUnpacked must not report installed")
	}
}

func TestDecodeLegacyTreeListing(t *testing.T) {
	body := []byte(`{
		"etc": {
			"packages": {
				"my_packages": {
					"my-content-1.0.0.zip": {
						"name": "my-content-1.0.0.zip",
						"lastUnpacked": "2016-01-12T11:30:00.000+11:00"
					}
				},
				"adobe": {
					"jcr:primaryType": "sling:Folder",
					"other.zip": {
						"name": "other.zip",
						"group": "adobe/consulting"
					}
				}
			}
		}
	}`)

	listing, err := decodeListing(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(listing.Results) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listing.Results))
	}

	lookup := listing.Find("my-content-1.0.0.zip")
	if !lookup.Found {
		t.Fatal("expected tree entry")
	}
	if lookup.Entry.Group != "my_packages" {
		t.Errorf("group should come from the parent segment, got %q", lookup.Entry.Group)
	}
	if !lookup.Entry.Installed() {
		t.Error("tree entry with lastUnpacked must report installed")
	}

	lookup = listing.Find("other.zip")
	if !lookup.Found {
		t.Fatal("expected second tree entry")
	}
	if lookup.Entry.Group != "adobe/consulting" {
		t.Errorf("explicit group must win over the parent segment, got %q", lookup.Entry.Group)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := decodeListing([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed body")
	}
}

func TestFindAbsentIsNotAnError(t *testing.T) {
	listing := &Listing{}
	lookup := listing.Find("missing.zip")
	if lookup.Found {
		t.Error("empty listing must report not found")
	}
}
