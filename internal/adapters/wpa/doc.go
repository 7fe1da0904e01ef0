// Package wpa drives wpa_supplicant through its fi.w1.wpa_supplicant1 D-Bus
// API. Connect and disconnect requests are method calls; their results come
// back as PropertiesChanged signals, which the driver forwards as
// notifications.
package wpa
