// Package process runs the Z-Wave driver daemon as a supervised child
// process.
//
// The core normally talks to a driver daemon that somebody else starts. With
// zwave.driver.managed set, the core starts the daemon itself once its MQTT
// subscriptions are in place, restarts it with exponential backoff when it
// exits and stops it on shutdown. The daemon's output is logged line by line
// and its state appears in the bridge's health report.
//
//	sup := process.New(process.Config{
//	    Binary: "/usr/local/bin/ozw-mqtt",
//	    Args:   []string{"--device", "/dev/ttyACM0"},
//	})
//	if err := sup.Start(ctx); err != nil {
//	    return err
//	}
//	defer sup.Stop()
package process
