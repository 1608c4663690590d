// Package divisions maps meet context to the division codes used by the
// external ranking site.
//
// The site publishes one ranking listing per division, named
// "<age category> <weight class>" (for example "Open Women's 64kg"). When the
// federation adopted the current weight classes the site renamed every
// listing: divisions for the new classes carry the plain name, while the
// pre-changeover listings were suffixed with " (Inactive)". A meet date on
// either side of the changeover therefore implies which variant to query
// first, but both variants must be tried because late registrations and
// corrections land on the other side.
package divisions
