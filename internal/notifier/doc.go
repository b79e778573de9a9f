// Package notifier reminds the chat when a calendar event is about to start.
//
// A Scheduler checks today's events (through the event cache) once a minute.
// An event is due when it starts within the next 90 seconds or started less
// than 30 seconds ago. Each event id is reminded at most once: it is marked
// in the NotifiedSet before the message goes out, and the set is cleared
// once a day so recurring ids can fire again on later days.
package notifier
