// Package registry pulls in every adapter family so their init
// registrations run. Import it for side effects from main packages.
package registry

import (
	_ "github.com/Alia5/CONDUIT/adapter/gamepad" // Register gamepad family
	_ "github.com/Alia5/CONDUIT/adapter/motion"  // Register motion family
	_ "github.com/Alia5/CONDUIT/adapter/mouse"   // Register mouse family
	_ "github.com/Alia5/CONDUIT/adapter/touch"   // Register touch family
)
