package types

type NavbarData struct {
	IsAuthenticated bool
	UserID          string
	UserEmail       string
	Active          string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

type BasePageData struct {
	Title  string
	Notice string
	Error  string
	Navbar NavbarData
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	active := d.Navbar.Active
	d.Navbar = data
	if d.Navbar.Active == "" {
		d.Navbar.Active = active
	}
}

// Option is a value/label pair rendered into a select element.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

func CategoryOptions(selected ServiceCategory) []Option {
	out := make([]Option, 0, len(ServiceCategories))
	for _, c := range ServiceCategories {
		out = append(out, Option{Value: string(c), Label: c.Label(), Selected: c == selected})
	}
	return out
}

func StatusOptions(selected RequestStatus) []Option {
	out := make([]Option, 0, len(RequestStatuses))
	for _, s := range RequestStatuses {
		out = append(out, Option{Value: string(s), Label: s.Label(), Selected: s == selected})
	}
	return out
}
